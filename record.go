package raftspec

import (
	"context"
	"time"
)

// Selection is the chosen value for one key of a partial record. Best is the
// winning candidate; Values holds every distinct value in order of first
// appearance for multi-valued fields and just Best otherwise.
type Selection struct {
	Key    Key
	Best   *FieldCandidate
	Values []*FieldCandidate
}

// PartialRecord is the result of one extraction pass over a document.
// Selections are in order of first appearance; Candidates keeps everything
// that was found for audit.
type PartialRecord struct {
	Document    string
	Fingerprint string
	Selections  []*Selection
	Candidates  []*FieldCandidate

	// Incomplete is set when a required field had no candidate; Missing
	// names those fields.
	Incomplete bool
	Missing    []string
}

// Get returns the selection for a key, or nil.
func (r *PartialRecord) Get(k Key) *Selection {
	for _, s := range r.Selections {
		if s.Key == k {
			return s
		}
	}
	return nil
}

// Best returns the winning candidate for a key, or nil.
func (r *PartialRecord) Best(k Key) *FieldCandidate {
	if s := r.Get(k); s != nil {
		return s.Best
	}
	return nil
}

// CanonicalField is a merged field. Values holds one value for
// single-valued fields and every distinct value for multi-valued ones.
type CanonicalField struct {
	Key        Key
	Values     []Value
	Multi      bool
	Source     Location
	Confidence Confidence
}

// Value returns the first value of the field.
func (f *CanonicalField) Value() Value {
	if len(f.Values) == 0 {
		return Value{}
	}
	return f.Values[0]
}

// Conflict records a field where equally ranked candidates disagreed.
type Conflict struct {
	Key        Key
	Adopted    Value
	Candidates []*FieldCandidate
}

// CanonicalRecord is the merged result for one document. After merge only
// PrimaryIdentifier may change, and only through deduplication.
type CanonicalRecord struct {
	ID                string
	PrimaryIdentifier string
	Document          string
	Fields            []*CanonicalField
	Conflicts         []*Conflict
	Incomplete        bool
	Missing           []string
	CreatedAt         time.Time
}

// Field returns the field for a key, or nil.
func (r *CanonicalRecord) Field(k Key) *CanonicalField {
	for _, f := range r.Fields {
		if f.Key == k {
			return f
		}
	}
	return nil
}

// Value returns the value of a document-wide field.
func (r *CanonicalRecord) Value(field string) (Value, bool) {
	f := r.Field(Key{Field: field})
	if f == nil {
		return Value{}, false
	}
	return f.Value(), true
}

// Anchors returns the distinct anchor labels of the record in order of
// first appearance.
func (r *CanonicalRecord) Anchors() []string {
	var anchors []string
	seen := make(map[string]bool)
	for _, f := range r.Fields {
		if f.Key.Anchor == "" || seen[f.Key.Anchor] {
			continue
		}
		seen[f.Key.Anchor] = true
		anchors = append(anchors, f.Key.Anchor)
	}
	return anchors
}

// Validate returns an error if the record cannot be stored.
func (r *CanonicalRecord) Validate() error {
	if r.Document == "" {
		return Errorf(EINVALID, "record document required")
	}
	return nil
}

// Correction records one identifier reassignment.
type Correction struct {
	ID        string    `json:"-"`
	Document  string    `json:"document"`
	Original  string    `json:"original_identifier"`
	Corrected string    `json:"corrected_identifier"`
	CreatedAt time.Time `json:"-"`
}

// Validate returns an error if the correction is incomplete.
func (c *Correction) Validate() error {
	if c.Document == "" {
		return Errorf(EINVALID, "correction document required")
	}
	if c.Original == "" || c.Corrected == "" {
		return Errorf(EINVALID, "correction for %s: identifiers required", c.Document)
	}
	return nil
}

// RecordExtractor turns one pass over a document into a partial record.
type RecordExtractor interface {
	// Extract returns EINVALID for empty or malformed input. Missing fields
	// never fail; they mark the record incomplete.
	Extract(blocks []*RawBlock) (*PartialRecord, error)
}

// RecordMerger combines partial records of one document.
type RecordMerger interface {
	// Merge returns EINVALID when given no records.
	Merge(records []*PartialRecord) (*CanonicalRecord, error)
}

// Deduplicator keeps primary identifiers unique across a record set.
type Deduplicator interface {
	// Deduplicate reassigns colliding identifiers in place and returns the
	// records with one correction per reassignment. Groups that cannot be
	// resolved are reported in the error and left untouched; other groups
	// are still corrected.
	Deduplicate(records []*CanonicalRecord) ([]*CanonicalRecord, []*Correction, error)
}

// RecordService represents a service for storing extracted records.
type RecordService interface {
	// CreateRecord stores a record and assigns its ID.
	CreateRecord(ctx context.Context, record *CanonicalRecord) error

	// FindRecordByID retrieves a record by ID.
	// Returns ENOTFOUND if the record does not exist.
	FindRecordByID(ctx context.Context, id string) (*CanonicalRecord, error)

	// FindRecords retrieves records matching the filter.
	FindRecords(ctx context.Context, filter RecordFilter) ([]*CanonicalRecord, error)

	// CreateCorrection stores a correction and assigns its ID.
	CreateCorrection(ctx context.Context, correction *Correction) error

	// FindCorrections retrieves all corrections in creation order.
	FindCorrections(ctx context.Context) ([]*Correction, error)
}

// RecordFilter represents a filter for FindRecords.
type RecordFilter struct {
	PrimaryIdentifier *string
	Document          *string

	Offset int
	Limit  int
}

// DatasetWriter stores a dataset with atomic update semantics: nothing is
// visible at the destination until Commit.
type DatasetWriter interface {
	Save(ctx context.Context, d *Dataset) error
	Commit() error
	Abort() error
}

// IdentifierSet tracks identifiers already claimed during deduplication.
type IdentifierSet interface {
	Add(id string)
	Contains(id string) bool
}
