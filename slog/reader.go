// Package slog provides logging decorators for raftspec services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/raftspec"
)

// Ensure LoggingReader implements raftspec.BlockReader.
var _ raftspec.BlockReader = (*LoggingReader)(nil)

// LoggingReader wraps a BlockReader with logging.
type LoggingReader struct {
	next   raftspec.BlockReader
	logger *slog.Logger
}

// NewLoggingReader creates a new LoggingReader.
func NewLoggingReader(next raftspec.BlockReader, logger *slog.Logger) *LoggingReader {
	return &LoggingReader{next: next, logger: logger}
}

// ReadBlocks logs the document being read and delegates to the wrapped reader.
func (r *LoggingReader) ReadBlocks(ctx context.Context, path string) (blocks []*raftspec.RawBlock, err error) {
	defer func(begin time.Time) {
		r.logger.Info("read",
			"path", path,
			"blocks", len(blocks),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.ReadBlocks(ctx, path)
}
