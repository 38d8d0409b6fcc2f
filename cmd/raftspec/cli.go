package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/fwojciec/raftspec"
	"github.com/fwojciec/raftspec/config"
	"github.com/fwojciec/raftspec/pipeline"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx      context.Context
	Stdout   io.Writer
	Stderr   io.Writer
	Config   *config.Config
	Logger   *slog.Logger
	Records  raftspec.RecordService
	Pipeline *pipeline.Pipeline

	// Writer overrides the file output of extract. Tests set it.
	Writer raftspec.DatasetWriter
}

// defaultDecimals is used when no configuration is loaded.
const defaultDecimals = 2

func (d *Dependencies) decimals() int {
	if d.Config == nil {
		return defaultDecimals
	}
	return d.Config.Output.Decimals
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config  string `short:"C" type:"path" help:"Configuration file"`
	DB      string `name:"db" type:"path" help:"SQLite database path (overrides the configuration)"`
	Verbose bool   `short:"v" help:"Log each step to stderr"`

	Extract     ExtractCmd     `cmd:"" help:"Extract records from manuals and certificates"`
	Convert     ConvertCmd     `cmd:"" help:"Convert a value to every unit of its dimension"`
	Records     RecordsCmd     `cmd:"" help:"List stored records"`
	Corrections CorrectionsCmd `cmd:"" help:"List stored identifier corrections"`
}

// ExtractCmd is the "extract" subcommand.
type ExtractCmd struct {
	Files       []string `arg:"" name:"files" type:"existingfile" help:"PDF or XLSX documents"`
	Output      string   `short:"o" type:"path" help:"Write the dataset to this JSON file instead of stdout"`
	Concurrency int      `short:"c" default:"4" help:"Documents processed at once"`
}

// ConvertCmd is the "convert" subcommand.
type ConvertCmd struct {
	Value float64 `arg:"" help:"Value to convert"`
	Unit  string  `arg:"" help:"Unit of the value, e.g. psi or mmWG"`
}

// RecordsCmd is the "records" subcommand.
type RecordsCmd struct {
	Identifier string `short:"i" help:"Only records with this primary identifier"`
	Document   string `short:"d" help:"Only records from this document"`
	JSON       bool   `help:"Print full records as JSON"`
}

// CorrectionsCmd is the "corrections" subcommand.
type CorrectionsCmd struct{}
