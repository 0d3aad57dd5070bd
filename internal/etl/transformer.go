package etl

import (
	"context"
	"errors"

	"github.com/BartekS5/cleanetl/pkg/logger"
	"github.com/BartekS5/cleanetl/pkg/models"
)

// DropMissing keeps only the rows that have a value in every column.
type DropMissing struct{}

func NewDropMissing() *DropMissing {
	return &DropMissing{}
}

func (t *DropMissing) Transform(ctx context.Context, ds *models.Dataset) (*models.Dataset, error) {
	if ds == nil {
		return nil, errors.New("transform: nil dataset")
	}
	logger.Info("Cleaning data...")

	keep := make([]int, 0, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		if !ds.RowHasMissing(i) {
			keep = append(keep, i)
		}
	}
	clean := ds.Select(keep)

	logger.Infof("Cleaned data to %d rows", clean.Len())
	return clean, nil
}
