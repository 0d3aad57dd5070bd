package cli

import (
	"context"
	"errors"
	"io"

	"github.com/BartekS5/cleanetl/internal/config"
	"github.com/BartekS5/cleanetl/internal/etl"
	"github.com/BartekS5/cleanetl/pkg/database"
	"github.com/BartekS5/cleanetl/pkg/logger"
	"github.com/BartekS5/cleanetl/pkg/models"
)

const previewRows = 20

func runPipeline(ctx context.Context, cfg *config.Config, out io.Writer) error {
	if cfg == nil {
		return errors.New("configuration not loaded")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	extractor := etl.NewCSVExtractor(cfg.FilePath, &etl.Sources{S3: etl.S3Options{
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		Profile:         cfg.S3.Profile,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		PathStyle:       cfg.S3.PathStyle,
	}})
	transformer := etl.NewDropMissing()

	if cfg.DryRun {
		pipeline := etl.NewPipeline(extractor, transformer, nil, true)
		pipeline.Preview = func(ds *models.Dataset) {
			renderPreview(out, ds, previewRows)
		}
		return pipeline.Run(ctx)
	}

	// connect before reading the source so a bad db_url fails fast
	h, err := database.Connect(ctx, cfg.DBURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(context.Background()); err != nil {
			logger.Warnf("Failed to close connection: %v", err)
		}
	}()

	var loader etl.Loader
	if h.IsDocumentStore() {
		loader = etl.NewMongoLoader(h, cfg.Table, cfg.BatchSize)
	} else {
		loader = etl.NewSQLLoader(h, cfg.Table, cfg.BatchSize)
	}

	return etl.NewPipeline(extractor, transformer, loader, false).Run(ctx)
}
