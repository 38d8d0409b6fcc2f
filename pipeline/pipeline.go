// Package pipeline runs a batch of documents through reading, extraction,
// merging and identifier deduplication.
package pipeline

import (
	"context"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fwojciec/raftspec"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of documents processed at once when
// Pipeline.Concurrency is not set.
const DefaultConcurrency = 4

// Pipeline processes documents. Readers are keyed by lower-case file
// extension including the dot (".pdf").
type Pipeline struct {
	Readers      map[string]raftspec.BlockReader
	Extractor    raftspec.RecordExtractor
	Merger       raftspec.RecordMerger
	Deduplicator raftspec.Deduplicator
	Concurrency  int
	Progress     ProgressFunc
}

// Failure is a document that could not be turned into a record. Failures
// never abort the batch.
type Failure struct {
	Document string
	Err      error
}

func (f *Failure) Error() string {
	if raftspec.ErrorCode(f.Err) == raftspec.EINTERNAL {
		return f.Document + ": " + f.Err.Error()
	}
	return f.Document + ": " + raftspec.ErrorMessage(f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Result holds the outcome of a batch.
type Result struct {
	Records     []*raftspec.CanonicalRecord
	Corrections []*raftspec.Correction
	Failures    []*Failure

	// Unresolved holds identifier collisions deduplication could not fix.
	Unresolved error
}

// ProgressEvent reports progress during a batch.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	Document  string
	Error     error
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressFinished
)

// ProgressFunc is a callback for reporting batch progress.
type ProgressFunc func(event ProgressEvent)

// documentResult holds the outcome of processing one document.
type documentResult struct {
	position int
	path     string
	record   *raftspec.CanonicalRecord
	err      error
}

// Run processes paths concurrently and deduplicates the resulting records
// once every document is done. Records keep the order of paths. Run only
// fails when ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context, paths []string) (*Result, error) {
	concurrency := p.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	total := len(paths)
	p.notify(ProgressEvent{Type: ProgressStarted, Total: total})

	resultCh := make(chan documentResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	go func() {
		for i, path := range paths {
			g.Go(func() error {
				resultCh <- p.process(gctx, i, path)
				return nil
			})
		}
		_ = g.Wait()
		close(resultCh)
	}()

	var completed atomic.Int64
	results := make([]documentResult, len(paths))
	for result := range resultCh {
		completed.Add(1)
		results[result.position] = result
		event := ProgressEvent{
			Type:      ProgressCompleted,
			Completed: int(completed.Load()),
			Total:     total,
			Document:  result.path,
		}
		if result.err != nil {
			event.Type = ProgressFailed
			event.Error = result.err
		}
		p.notify(event)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := &Result{}
	for _, result := range results {
		if result.err != nil {
			out.Failures = append(out.Failures, &Failure{Document: result.path, Err: result.err})
			continue
		}
		out.Records = append(out.Records, result.record)
	}

	if p.Deduplicator != nil && len(out.Records) > 0 {
		records, corrections, err := p.Deduplicator.Deduplicate(out.Records)
		out.Records, out.Corrections, out.Unresolved = records, corrections, err
	}

	p.notify(ProgressEvent{Type: ProgressFinished, Completed: total, Total: total})
	return out, nil
}

func (p *Pipeline) notify(event ProgressEvent) {
	if p.Progress != nil {
		p.Progress(event)
	}
}

// process reads, extracts and merges one document.
func (p *Pipeline) process(ctx context.Context, position int, path string) documentResult {
	result := documentResult{position: position, path: path}
	if err := ctx.Err(); err != nil {
		result.err = err
		return result
	}

	ext := strings.ToLower(filepath.Ext(path))
	reader, ok := p.Readers[ext]
	if !ok {
		result.err = raftspec.Errorf(raftspec.EINVALID, "no reader for %q files", ext)
		return result
	}
	blocks, err := reader.ReadBlocks(ctx, path)
	if err != nil {
		result.err = err
		return result
	}
	if len(blocks) == 0 {
		result.err = raftspec.Errorf(raftspec.EINVALID, "%s has no readable content", filepath.Base(path))
		return result
	}

	var partials []*raftspec.PartialRecord
	for _, pass := range Passes(blocks) {
		partial, err := p.Extractor.Extract(pass)
		if err != nil {
			result.err = err
			return result
		}
		partials = append(partials, partial)
	}
	result.record, result.err = p.Merger.Merge(partials)
	return result
}

// Passes splits a document's blocks into extraction passes: all text pages
// form one pass and every sheet is a pass of its own, in order of first
// appearance.
func Passes(blocks []*raftspec.RawBlock) [][]*raftspec.RawBlock {
	var passes [][]*raftspec.RawBlock
	text := -1
	for _, b := range blocks {
		if b.IsGrid() {
			passes = append(passes, []*raftspec.RawBlock{b})
			continue
		}
		if text < 0 {
			text = len(passes)
			passes = append(passes, nil)
		}
		passes[text] = append(passes[text], b)
	}
	return passes
}
