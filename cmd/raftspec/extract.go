package main

import (
	"errors"
	"fmt"

	"github.com/fwojciec/raftspec"
	"github.com/fwojciec/raftspec/dedupe"
	"github.com/fwojciec/raftspec/fs"
	"github.com/fwojciec/raftspec/pipeline"
)

// Run executes the extract command.
func (c *ExtractCmd) Run(deps *Dependencies) error {
	if deps.Pipeline == nil {
		err := raftspec.Errorf(raftspec.EINTERNAL, "extraction pipeline not configured")
		fmt.Fprintf(deps.Stderr, "error: %s\n", err.Message)
		return err
	}
	if c.Concurrency > 0 {
		deps.Pipeline.Concurrency = c.Concurrency
	}
	deps.Pipeline.Progress = func(event pipeline.ProgressEvent) {
		switch event.Type {
		case pipeline.ProgressStarted:
			fmt.Fprintf(deps.Stderr, "  Processing %d documents\n", event.Total)
		case pipeline.ProgressFailed:
			fmt.Fprintf(deps.Stderr, "  skip %s: %s\n", event.Document, raftspec.ErrorMessage(event.Error))
		}
	}

	result, err := deps.Pipeline.Run(deps.Ctx, c.Files)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", raftspec.ErrorMessage(err))
		return err
	}
	reportUnresolved(deps, result.Unresolved)

	if len(result.Records) == 0 {
		err := raftspec.Errorf(raftspec.EINVALID, "no records extracted from %d documents", len(c.Files))
		fmt.Fprintf(deps.Stderr, "error: %s\n", err.Message)
		return err
	}

	if deps.Records != nil {
		if err := store(deps, result); err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", raftspec.ErrorMessage(err))
			return err
		}
	}

	dataset := &raftspec.Dataset{Records: result.Records, Corrections: result.Corrections}
	if err := c.write(deps, dataset); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", raftspec.ErrorMessage(err))
		return err
	}

	incomplete := 0
	for _, r := range result.Records {
		if r.Incomplete {
			incomplete++
		}
	}
	fmt.Fprintf(deps.Stderr, "  Extracted %d records (%d incomplete, %d corrected, %d failed)\n",
		len(result.Records), incomplete, len(result.Corrections), len(result.Failures))
	return nil
}

// write saves the dataset to the output file, or prints it when no file is
// given.
func (c *ExtractCmd) write(deps *Dependencies, d *raftspec.Dataset) error {
	w := deps.Writer
	if w == nil && c.Output != "" {
		w = fs.NewWriter(c.Output, deps.decimals())
	}
	if w == nil {
		b, err := raftspec.Encoder{Decimals: deps.decimals()}.Dataset(d)
		if err != nil {
			return err
		}
		fmt.Fprintln(deps.Stdout, string(b))
		return nil
	}

	if err := w.Save(deps.Ctx, d); err != nil {
		_ = w.Abort()
		return err
	}
	return w.Commit()
}

func store(deps *Dependencies, result *pipeline.Result) error {
	for _, r := range result.Records {
		if err := deps.Records.CreateRecord(deps.Ctx, r); err != nil {
			return err
		}
	}
	for _, c := range result.Corrections {
		if err := deps.Records.CreateCorrection(deps.Ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// reportUnresolved prints identifier collisions that could not be fixed.
func reportUnresolved(deps *Dependencies, err error) {
	if err == nil {
		return
	}
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	for _, e := range errs {
		var group *dedupe.GroupError
		if errors.As(e, &group) {
			fmt.Fprintf(deps.Stderr, "  warning: %s shared by %v: %s\n",
				group.Identifier, group.Documents, raftspec.ErrorMessage(group.Err))
			continue
		}
		fmt.Fprintf(deps.Stderr, "  warning: %s\n", raftspec.ErrorMessage(e))
	}
}
