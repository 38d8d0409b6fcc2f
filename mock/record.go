package mock

import (
	"context"

	"github.com/fwojciec/raftspec"
)

var (
	_ raftspec.RecordExtractor = (*RecordExtractor)(nil)
	_ raftspec.RecordMerger    = (*RecordMerger)(nil)
	_ raftspec.Deduplicator    = (*Deduplicator)(nil)
	_ raftspec.RecordService   = (*RecordService)(nil)
)

// RecordExtractor is a mock implementation of raftspec.RecordExtractor.
type RecordExtractor struct {
	ExtractFn func(blocks []*raftspec.RawBlock) (*raftspec.PartialRecord, error)
}

func (e *RecordExtractor) Extract(blocks []*raftspec.RawBlock) (*raftspec.PartialRecord, error) {
	return e.ExtractFn(blocks)
}

// RecordMerger is a mock implementation of raftspec.RecordMerger.
type RecordMerger struct {
	MergeFn func(records []*raftspec.PartialRecord) (*raftspec.CanonicalRecord, error)
}

func (m *RecordMerger) Merge(records []*raftspec.PartialRecord) (*raftspec.CanonicalRecord, error) {
	return m.MergeFn(records)
}

// Deduplicator is a mock implementation of raftspec.Deduplicator.
type Deduplicator struct {
	DeduplicateFn func(records []*raftspec.CanonicalRecord) ([]*raftspec.CanonicalRecord, []*raftspec.Correction, error)
}

func (d *Deduplicator) Deduplicate(records []*raftspec.CanonicalRecord) ([]*raftspec.CanonicalRecord, []*raftspec.Correction, error) {
	return d.DeduplicateFn(records)
}

// RecordService is a mock implementation of raftspec.RecordService.
type RecordService struct {
	CreateRecordFn     func(ctx context.Context, record *raftspec.CanonicalRecord) error
	FindRecordByIDFn   func(ctx context.Context, id string) (*raftspec.CanonicalRecord, error)
	FindRecordsFn      func(ctx context.Context, filter raftspec.RecordFilter) ([]*raftspec.CanonicalRecord, error)
	CreateCorrectionFn func(ctx context.Context, correction *raftspec.Correction) error
	FindCorrectionsFn  func(ctx context.Context) ([]*raftspec.Correction, error)
}

func (s *RecordService) CreateRecord(ctx context.Context, record *raftspec.CanonicalRecord) error {
	return s.CreateRecordFn(ctx, record)
}

func (s *RecordService) FindRecordByID(ctx context.Context, id string) (*raftspec.CanonicalRecord, error) {
	return s.FindRecordByIDFn(ctx, id)
}

func (s *RecordService) FindRecords(ctx context.Context, filter raftspec.RecordFilter) ([]*raftspec.CanonicalRecord, error) {
	return s.FindRecordsFn(ctx, filter)
}

func (s *RecordService) CreateCorrection(ctx context.Context, correction *raftspec.Correction) error {
	return s.CreateCorrectionFn(ctx, correction)
}

func (s *RecordService) FindCorrections(ctx context.Context) ([]*raftspec.Correction, error) {
	return s.FindCorrectionsFn(ctx)
}

// DatasetWriter is a mock implementation of raftspec.DatasetWriter.
type DatasetWriter struct {
	SaveFn   func(ctx context.Context, d *raftspec.Dataset) error
	CommitFn func() error
	AbortFn  func() error
}

var _ raftspec.DatasetWriter = (*DatasetWriter)(nil)

func (w *DatasetWriter) Save(ctx context.Context, d *raftspec.Dataset) error {
	return w.SaveFn(ctx, d)
}

func (w *DatasetWriter) Commit() error {
	return w.CommitFn()
}

func (w *DatasetWriter) Abort() error {
	return w.AbortFn()
}
