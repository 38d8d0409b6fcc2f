package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/raftspec"
)

var (
	_ raftspec.RecordExtractor = (*LoggingExtractor)(nil)
	_ raftspec.RecordMerger    = (*LoggingMerger)(nil)
	_ raftspec.Deduplicator    = (*LoggingDeduplicator)(nil)
)

// LoggingExtractor wraps a RecordExtractor with logging.
type LoggingExtractor struct {
	next   raftspec.RecordExtractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next raftspec.RecordExtractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract logs the pass and delegates to the wrapped extractor.
func (e *LoggingExtractor) Extract(blocks []*raftspec.RawBlock) (record *raftspec.PartialRecord, err error) {
	defer func(begin time.Time) {
		attrs := []any{"blocks", len(blocks)}
		if record != nil {
			attrs = append(attrs,
				"document", record.Document,
				"candidates", len(record.Candidates),
				"fields", len(record.Selections),
				"incomplete", record.Incomplete,
			)
		}
		attrs = append(attrs, "duration", time.Since(begin), "err", err)
		e.logger.Info("extract", attrs...)
	}(time.Now())
	return e.next.Extract(blocks)
}

// LoggingMerger wraps a RecordMerger with logging.
type LoggingMerger struct {
	next   raftspec.RecordMerger
	logger *slog.Logger
}

// NewLoggingMerger creates a new LoggingMerger.
func NewLoggingMerger(next raftspec.RecordMerger, logger *slog.Logger) *LoggingMerger {
	return &LoggingMerger{next: next, logger: logger}
}

// Merge logs the merged record and delegates to the wrapped merger.
func (m *LoggingMerger) Merge(records []*raftspec.PartialRecord) (record *raftspec.CanonicalRecord, err error) {
	defer func(begin time.Time) {
		attrs := []any{"passes", len(records)}
		if record != nil {
			attrs = append(attrs,
				"document", record.Document,
				"identifier", record.PrimaryIdentifier,
				"fields", len(record.Fields),
				"conflicts", len(record.Conflicts),
			)
		}
		attrs = append(attrs, "duration", time.Since(begin), "err", err)
		m.logger.Info("merge", attrs...)
	}(time.Now())
	return m.next.Merge(records)
}

// LoggingDeduplicator wraps a Deduplicator with logging.
type LoggingDeduplicator struct {
	next   raftspec.Deduplicator
	logger *slog.Logger
}

// NewLoggingDeduplicator creates a new LoggingDeduplicator.
func NewLoggingDeduplicator(next raftspec.Deduplicator, logger *slog.Logger) *LoggingDeduplicator {
	return &LoggingDeduplicator{next: next, logger: logger}
}

// Deduplicate logs every correction and delegates to the wrapped deduplicator.
func (d *LoggingDeduplicator) Deduplicate(records []*raftspec.CanonicalRecord) (out []*raftspec.CanonicalRecord, corrections []*raftspec.Correction, err error) {
	defer func(begin time.Time) {
		for _, c := range corrections {
			d.logger.Warn("identifier corrected",
				"document", c.Document,
				"original", c.Original,
				"corrected", c.Corrected,
			)
		}
		d.logger.Info("deduplicate",
			"records", len(records),
			"corrections", len(corrections),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return d.next.Deduplicate(records)
}
