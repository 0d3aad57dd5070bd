package etl

import (
	"context"
	"errors"
	"time"

	"github.com/BartekS5/cleanetl/pkg/logger"
	"github.com/BartekS5/cleanetl/pkg/models"
)

// Pipeline runs Extractor -> Transformer -> Loader once. The first failing
// stage stops the run; nothing downstream of it executes.
type Pipeline struct {
	Extractor   Extractor
	Transformer Transformer
	Loader      Loader
	DryRun      bool
	// Preview receives the cleaned dataset instead of the Loader on dry runs.
	Preview func(ds *models.Dataset)
}

func NewPipeline(ext Extractor, tr Transformer, loader Loader, dryRun bool) *Pipeline {
	return &Pipeline{
		Extractor:   ext,
		Transformer: tr,
		Loader:      loader,
		DryRun:      dryRun,
	}
}

func (p *Pipeline) Run(ctx context.Context) error {
	if p.Extractor == nil || p.Transformer == nil {
		return errors.New("pipeline needs an extractor and a transformer")
	}
	if !p.DryRun && p.Loader == nil {
		return errors.New("pipeline needs a loader unless it is a dry run")
	}

	logger.Infof("Starting pipeline. DryRun: %v", p.DryRun)
	start := time.Now()

	ds, err := p.Extractor.Extract(ctx)
	if err != nil {
		logger.Errorf("Extraction failed: %v", err)
		return err
	}

	clean, err := p.Transformer.Transform(ctx, ds)
	if err != nil {
		logger.Errorf("Transformation failed: %v", err)
		return err
	}

	if p.DryRun {
		logger.Infof("[DRY RUN] Would load %d rows", clean.Len())
		if p.Preview != nil {
			p.Preview(clean)
		}
	} else if err := p.Loader.Load(ctx, clean); err != nil {
		logger.Errorf("Loading failed: %v", err)
		return err
	}

	logger.Infof("Pipeline finished successfully in %s.", time.Since(start).Round(time.Millisecond))
	return nil
}
