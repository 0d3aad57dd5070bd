package etl

import (
	"context"

	"github.com/BartekS5/cleanetl/pkg/models"
)

type Extractor interface {
	Extract(ctx context.Context) (*models.Dataset, error)
}

type Transformer interface {
	Transform(ctx context.Context, ds *models.Dataset) (*models.Dataset, error)
}

type Loader interface {
	Load(ctx context.Context, ds *models.Dataset) error
}
