package etl

import (
	"fmt"
	"math"

	"github.com/BartekS5/cleanetl/pkg/models"
)

// Validator checks a Dataset is fit to become a table before any write.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateDataset requires at least one column, unique non-empty names,
// equal column lengths and values that match each column's kind.
func (v *Validator) ValidateDataset(ds *models.Dataset) error {
	if ds == nil {
		return fmt.Errorf("dataset is nil")
	}
	if ds.Width() == 0 {
		return fmt.Errorf("dataset has no columns")
	}

	seen := make(map[string]bool, ds.Width())
	for _, c := range ds.Columns() {
		if c.Name == "" {
			return fmt.Errorf("dataset has a column without a name")
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column name: %s", c.Name)
		}
		seen[c.Name] = true

		if len(c.Values) != ds.Len() {
			return fmt.Errorf("column %s has %d values, expected %d", c.Name, len(c.Values), ds.Len())
		}
		for i, val := range c.Values {
			if val != nil && !kindMatches(c.Kind, val) {
				return fmt.Errorf("column %s row %d: %T does not match kind %s", c.Name, i, val, c.Kind)
			}
			if f, ok := val.(float64); ok && math.IsNaN(f) {
				return fmt.Errorf("column %s row %d: NaN must be stored as a missing value", c.Name, i)
			}
		}
	}
	return nil
}

func kindMatches(k models.Kind, val any) bool {
	switch val.(type) {
	case string:
		return k == models.KindString
	case int64:
		return k == models.KindInt
	case float64:
		return k == models.KindFloat
	case bool:
		return k == models.KindBool
	}
	return false
}
