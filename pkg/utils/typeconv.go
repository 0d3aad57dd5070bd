package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/BartekS5/cleanetl/pkg/models"
)

// naMarkers are the cell contents treated as missing, besides blank cells.
var naMarkers = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// IsMissing reports whether a raw CSV cell holds no value.
func IsMissing(cell string) bool {
	if strings.TrimSpace(cell) == "" {
		return true
	}
	_, ok := naMarkers[cell]
	return ok
}

// InferKind picks the narrowest kind that every non-missing cell parses as.
func InferKind(cells []string) models.Kind {
	isInt, isFloat, isBool := true, true, true
	seen := false

	for _, c := range cells {
		if IsMissing(c) {
			continue
		}
		seen = true
		v := strings.TrimSpace(c)
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				isFloat = false
			}
		}
		if isBool {
			if _, ok := parseBool(v); !ok {
				isBool = false
			}
		}
		if !isInt && !isFloat && !isBool {
			return models.KindString
		}
	}

	switch {
	case !seen:
		return models.KindString
	case isInt:
		return models.KindInt
	case isFloat:
		return models.KindFloat
	case isBool:
		return models.KindBool
	default:
		return models.KindString
	}
}

// ConvertCell turns a raw cell into the Go value for kind. Missing cells yield nil.
func ConvertCell(cell string, kind models.Kind) (any, error) {
	if IsMissing(cell) {
		return nil, nil
	}
	v := strings.TrimSpace(cell)
	switch kind {
	case models.KindInt:
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to int: %w", cell, err)
		}
		return i, nil
	case models.KindFloat:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %q to float: %w", cell, err)
		}
		// NaN spelled any other way ("NAN", "+nan") is still missing
		if math.IsNaN(f) {
			return nil, nil
		}
		return f, nil
	case models.KindBool:
		b, ok := parseBool(v)
		if !ok {
			return nil, fmt.Errorf("cannot convert %q to bool", cell)
		}
		return b, nil
	default:
		return cell, nil
	}
}

// ToSQLValue prepares a dataset value as a driver argument. Infinities are
// passed through; a store that cannot hold them fails the insert.
func ToSQLValue(val any) any {
	switch v := val.(type) {
	case nil:
		return nil
	case int:
		return int64(v)
	case time.Time:
		return v.UTC()
	default:
		return v
	}
}

// ToMongoValue prepares a dataset value for a BSON document.
func ToMongoValue(val any) any {
	return ToSQLValue(val)
}

// FormatValue renders a value for human-readable output.
func FormatValue(val any) string {
	switch v := val.(type) {
	case nil:
		return "NULL"
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}
