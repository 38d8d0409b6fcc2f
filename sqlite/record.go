package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/raftspec"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ raftspec.RecordService = (*RecordService)(nil)

// RecordService implements raftspec.RecordService using SQLite.
type RecordService struct {
	db *DB
}

// NewRecordService creates a new RecordService.
func NewRecordService(db *DB) *RecordService {
	return &RecordService{db: db}
}

// CreateRecord stores a record with its fields and conflicts in one
// transaction.
func (s *RecordService) CreateRecord(ctx context.Context, record *raftspec.CanonicalRecord) error {
	if err := record.Validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.New().String()
	createdAt := time.Now().UTC().Truncate(time.Second)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO records (id, primary_identifier, document, incomplete, missing, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, record.PrimaryIdentifier, record.Document, boolInt(record.Incomplete),
		strings.Join(record.Missing, ","), createdAt.Format(time.RFC3339)); err != nil {
		return err
	}

	for pos, f := range record.Fields {
		for i, v := range f.Values {
			sv := encodeValue(v)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO record_fields (record_id, position, value_index, field, anchor, multi,
					kind, number, text, date, unit, flag,
					source_document, source_block, source_page, source_sheet, source_line, source_col, confidence)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, id, pos, i, f.Key.Field, f.Key.Anchor, boolInt(f.Multi),
				sv.Kind, sv.Number, sv.Text, sv.Date, sv.Unit, boolInt(sv.Flag),
				f.Source.Document, f.Source.Block, f.Source.Page, f.Source.Sheet, f.Source.Line, f.Source.Col,
				f.Confidence.String()); err != nil {
				return err
			}
		}
	}

	for pos, c := range record.Conflicts {
		adopted, err := json.Marshal(encodeValue(c.Adopted))
		if err != nil {
			return err
		}
		stored := make([]storedCandidate, len(c.Candidates))
		for i, cand := range c.Candidates {
			stored[i] = storedCandidate{
				Field:      cand.Key.Field,
				Anchor:     cand.Key.Anchor,
				Value:      encodeValue(cand.Value),
				Location:   cand.Location,
				Confidence: cand.Confidence.String(),
				Rule:       cand.Rule,
				Text:       cand.Text,
			}
		}
		candidates, err := json.Marshal(stored)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO record_conflicts (record_id, position, field, anchor, adopted, candidates)
			VALUES (?, ?, ?, ?, ?, ?)
		`, id, pos, c.Key.Field, c.Key.Anchor, string(adopted), string(candidates)); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	record.ID = id
	record.CreatedAt = createdAt
	return nil
}

const recordColumns = "id, primary_identifier, document, incomplete, missing, created_at"

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*raftspec.CanonicalRecord, error) {
	var r raftspec.CanonicalRecord
	var incomplete int
	var missing, createdAt string
	if err := row.Scan(&r.ID, &r.PrimaryIdentifier, &r.Document, &incomplete, &missing, &createdAt); err != nil {
		return nil, err
	}
	r.Incomplete = incomplete != 0
	if missing != "" {
		r.Missing = strings.Split(missing, ",")
	}
	var err error
	if r.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	return &r, nil
}

// FindRecordByID retrieves a record by ID.
func (s *RecordService) FindRecordByID(ctx context.Context, id string) (*raftspec.CanonicalRecord, error) {
	r, err := scanRecord(s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM records WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, raftspec.Errorf(raftspec.ENOTFOUND, "record not found")
	}
	if err != nil {
		return nil, err
	}
	if err := s.load(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// FindRecords retrieves records matching the filter in creation order.
func (s *RecordService) FindRecords(ctx context.Context, filter raftspec.RecordFilter) ([]*raftspec.CanonicalRecord, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + recordColumns + " FROM records WHERE 1=1")

	if filter.PrimaryIdentifier != nil {
		query.WriteString(" AND primary_identifier = ?")
		args = append(args, *filter.PrimaryIdentifier)
	}
	if filter.Document != nil {
		query.WriteString(" AND document = ?")
		args = append(args, *filter.Document)
	}
	query.WriteString(" ORDER BY rowid ASC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	records, err := s.scanRecords(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}

	// The database has a single connection, so fields are loaded only once
	// the record rows are closed.
	for _, r := range records {
		if err := s.load(ctx, r); err != nil {
			return nil, err
		}
	}
	return records, nil
}

func (s *RecordService) load(ctx context.Context, r *raftspec.CanonicalRecord) error {
	if err := s.loadFields(ctx, r); err != nil {
		return err
	}
	return s.loadConflicts(ctx, r)
}

func (s *RecordService) scanRecords(ctx context.Context, query string, args ...any) ([]*raftspec.CanonicalRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*raftspec.CanonicalRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *RecordService) loadFields(ctx context.Context, r *raftspec.CanonicalRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, field, anchor, multi, kind, number, text, date, unit, flag,
			source_document, source_block, source_page, source_sheet, source_line, source_col, confidence
		FROM record_fields
		WHERE record_id = ?
		ORDER BY position ASC, value_index ASC
	`, r.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	last := -1
	for rows.Next() {
		var pos, multi, flag int
		var sv storedValue
		var f raftspec.CanonicalField
		var confidence string
		if err := rows.Scan(&pos, &f.Key.Field, &f.Key.Anchor, &multi,
			&sv.Kind, &sv.Number, &sv.Text, &sv.Date, &sv.Unit, &flag,
			&f.Source.Document, &f.Source.Block, &f.Source.Page, &f.Source.Sheet, &f.Source.Line, &f.Source.Col,
			&confidence); err != nil {
			return err
		}
		sv.Flag = flag != 0
		v, err := sv.decode()
		if err != nil {
			return err
		}
		if pos == last {
			cur := r.Fields[len(r.Fields)-1]
			cur.Values = append(cur.Values, v)
			continue
		}
		last = pos
		f.Multi = multi != 0
		f.Values = []raftspec.Value{v}
		if f.Confidence, err = raftspec.ParseConfidence(confidence); err != nil {
			return err
		}
		r.Fields = append(r.Fields, &f)
	}
	return rows.Err()
}

func (s *RecordService) loadConflicts(ctx context.Context, r *raftspec.CanonicalRecord) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT field, anchor, adopted, candidates
		FROM record_conflicts
		WHERE record_id = ?
		ORDER BY position ASC
	`, r.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c raftspec.Conflict
		var adopted, candidates string
		if err := rows.Scan(&c.Key.Field, &c.Key.Anchor, &adopted, &candidates); err != nil {
			return err
		}

		var sv storedValue
		if err := json.Unmarshal([]byte(adopted), &sv); err != nil {
			return fmt.Errorf("failed to parse adopted value: %w", err)
		}
		if c.Adopted, err = sv.decode(); err != nil {
			return err
		}

		var stored []storedCandidate
		if err := json.Unmarshal([]byte(candidates), &stored); err != nil {
			return fmt.Errorf("failed to parse conflict candidates: %w", err)
		}
		for _, sc := range stored {
			v, err := sc.Value.decode()
			if err != nil {
				return err
			}
			conf, err := raftspec.ParseConfidence(sc.Confidence)
			if err != nil {
				return err
			}
			c.Candidates = append(c.Candidates, &raftspec.FieldCandidate{
				Key:        raftspec.Key{Field: sc.Field, Anchor: sc.Anchor},
				Value:      v,
				Location:   sc.Location,
				Confidence: conf,
				Rule:       sc.Rule,
				Text:       sc.Text,
			})
		}
		r.Conflicts = append(r.Conflicts, &c)
	}
	return rows.Err()
}

// CreateCorrection stores a correction.
func (s *RecordService) CreateCorrection(ctx context.Context, correction *raftspec.Correction) error {
	if err := correction.Validate(); err != nil {
		return err
	}

	correction.ID = uuid.New().String()
	correction.CreatedAt = time.Now().UTC().Truncate(time.Second)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO corrections (id, document, original_identifier, corrected_identifier, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, correction.ID, correction.Document, correction.Original, correction.Corrected,
		correction.CreatedAt.Format(time.RFC3339))
	return err
}

// FindCorrections retrieves all corrections in creation order.
func (s *RecordService) FindCorrections(ctx context.Context) ([]*raftspec.Correction, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document, original_identifier, corrected_identifier, created_at
		FROM corrections
		ORDER BY rowid ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var corrections []*raftspec.Correction
	for rows.Next() {
		var c raftspec.Correction
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Document, &c.Original, &c.Corrected, &createdAt); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
			return nil, err
		}
		corrections = append(corrections, &c)
	}
	return corrections, rows.Err()
}
