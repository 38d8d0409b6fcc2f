package main

import (
	"log/slog"

	"github.com/fwojciec/raftspec"
	"github.com/fwojciec/raftspec/bloom"
	"github.com/fwojciec/raftspec/config"
	"github.com/fwojciec/raftspec/dedupe"
	"github.com/fwojciec/raftspec/excelize"
	"github.com/fwojciec/raftspec/extract"
	"github.com/fwojciec/raftspec/merge"
	"github.com/fwojciec/raftspec/pattern"
	"github.com/fwojciec/raftspec/pdf"
	"github.com/fwojciec/raftspec/pipeline"
	rslog "github.com/fwojciec/raftspec/slog"
)

// newPipeline wires the extraction services from the configuration.
func newPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	table, err := loadTable(cfg.Rules)
	if err != nil {
		return nil, err
	}
	registry, err := table.Registry(cfg.Plausibility)
	if err != nil {
		return nil, err
	}
	schema := registry.Schema()

	format, err := dedupe.NewFormat(cfg.Identifier.Pattern, cfg.Identifier.Width)
	if err != nil {
		return nil, err
	}

	merger := merge.NewMerger(schema,
		merge.WithPrecedence(cfg.Precedence),
		merge.WithIdentifierFields(cfg.Identifier.Fields...),
		merge.WithTolerance(cfg.Merge.Tolerance),
	)

	workbooks := rslog.NewLoggingReader(excelize.NewReader(), logger)
	return &pipeline.Pipeline{
		Readers: map[string]raftspec.BlockReader{
			".pdf":  rslog.NewLoggingReader(pdf.NewReader(), logger),
			".xlsx": workbooks,
			".xlsm": workbooks,
		},
		Extractor:    rslog.NewLoggingExtractor(extract.NewEngine(registry, cfg.Window), logger),
		Merger:       rslog.NewLoggingMerger(merger, logger),
		Deduplicator: rslog.NewLoggingDeduplicator(dedupe.NewAllocator(format, dedupe.WithSet(bloom.NewIdentifierSet)), logger),
		Concurrency:  pipeline.DefaultConcurrency,
	}, nil
}

func loadTable(path string) (*pattern.Table, error) {
	if path == "" {
		return pattern.DefaultTable()
	}
	return pattern.LoadTable(path)
}
