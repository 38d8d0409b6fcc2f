package main

import (
	"fmt"

	"github.com/fwojciec/raftspec"
)

// errNoDatabase is returned by commands that need storage when no database
// is configured.
var errNoDatabase = raftspec.Errorf(raftspec.EINVALID, "no database configured; use --db or RAFTSPEC_DATABASE")

// Run executes the records command.
func (c *RecordsCmd) Run(deps *Dependencies) error {
	if deps.Records == nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", raftspec.ErrorMessage(errNoDatabase))
		return errNoDatabase
	}

	filter := raftspec.RecordFilter{}
	if c.Identifier != "" {
		filter.PrimaryIdentifier = &c.Identifier
	}
	if c.Document != "" {
		filter.Document = &c.Document
	}

	records, err := deps.Records.FindRecords(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", raftspec.ErrorMessage(err))
		return err
	}

	if len(records) == 0 {
		fmt.Fprintln(deps.Stdout, "No records found. Use 'raftspec extract --db' to store some.")
		return nil
	}

	if c.JSON {
		b, err := raftspec.Encoder{Decimals: deps.decimals()}.Dataset(&raftspec.Dataset{Records: records})
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", raftspec.ErrorMessage(err))
			return err
		}
		fmt.Fprintln(deps.Stdout, string(b))
		return nil
	}

	for _, r := range records {
		status := "complete"
		if r.Incomplete {
			status = "incomplete"
		}
		identifier := r.PrimaryIdentifier
		if identifier == "" {
			identifier = "-"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s  %s  %d fields  %s\n",
			r.ID, identifier, r.Document, len(r.Fields), status)
	}
	return nil
}

// Run executes the corrections command.
func (c *CorrectionsCmd) Run(deps *Dependencies) error {
	if deps.Records == nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", raftspec.ErrorMessage(errNoDatabase))
		return errNoDatabase
	}

	corrections, err := deps.Records.FindCorrections(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", raftspec.ErrorMessage(err))
		return err
	}

	if len(corrections) == 0 {
		fmt.Fprintln(deps.Stdout, "No corrections recorded.")
		return nil
	}

	for _, corr := range corrections {
		fmt.Fprintf(deps.Stdout, "%s  %s -> %s\n", corr.Document, corr.Original, corr.Corrected)
	}
	return nil
}
