package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/crudgen-api/internal/model"
	"github.com/couchcryptid/crudgen-api/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const columns = `id, data`

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// Store is the PostgreSQL DataAccess. Every entity shares the records table; fields
// are kept in a JSONB document and forward relationships as ids inside it.
type Store struct {
	pool    *pgxpool.Pool
	metrics *observability.Metrics
}

var _ model.DataAccess = (*Store)(nil)

// New creates a Store with the given connection pool and metrics.
func New(pool *pgxpool.Pool, m *observability.Metrics) *Store {
	return &Store{pool: pool, metrics: m}
}

func (s *Store) observeQuery(operation string, start time.Time) {
	s.metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// List returns up to limit records of entity in insertion order.
func (s *Store) List(ctx context.Context, entity string, limit int) ([]model.Record, error) {
	defer s.observeQuery("list", time.Now())
	query, args := buildListQuery(entity, nil, limit)
	return s.queryRecords(ctx, query, args...)
}

// ListBy returns records whose field equals value or, for array fields, contains it.
func (s *Store) ListBy(ctx context.Context, entity, field, value string, limit int) ([]model.Record, error) {
	defer s.observeQuery("list_by", time.Now())
	query, args := buildListQuery(entity, &fieldMatch{field: field, value: value}, limit)
	return s.queryRecords(ctx, query, args...)
}

// Get returns one record.
func (s *Store) Get(ctx context.Context, entity, id string) (model.Record, error) {
	defer s.observeQuery("get", time.Now())
	row := s.pool.QueryRow(ctx,
		"SELECT "+columns+" FROM records WHERE entity = $1 AND id = $2", entity, id)
	return scanRecord(row, entity, id)
}

// Create inserts a record under a new UUID.
func (s *Store) Create(ctx context.Context, entity string, fields map[string]any) (model.Record, error) {
	defer s.observeQuery("create", time.Now())
	data, err := encodeFields(fields)
	if err != nil {
		return model.Record{}, err
	}
	id := uuid.NewString()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO records (entity, id, data)
		VALUES ($1, $2, $3::jsonb)
		RETURNING `+columns,
		entity, id, data,
	)
	rec, err := scanRecord(row, entity, id)
	return rec, constraintError(entity, err)
}

// Update merges fields into the stored document. A null value clears the field.
func (s *Store) Update(ctx context.Context, entity, id string, fields map[string]any) (model.Record, error) {
	defer s.observeQuery("update", time.Now())
	data, err := encodeFields(fields)
	if err != nil {
		return model.Record{}, err
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE records SET data = data || $3::jsonb, updated_at = now()
		WHERE entity = $1 AND id = $2
		RETURNING `+columns,
		entity, id, data,
	)
	rec, err := scanRecord(row, entity, id)
	return rec, constraintError(entity, err)
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, entity, id string) error {
	defer s.observeQuery("delete", time.Now())
	tag, err := s.pool.Exec(ctx, "DELETE FROM records WHERE entity = $1 AND id = $2", entity, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", entity, err)
	}
	if tag.RowsAffected() == 0 {
		return &model.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]model.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows, "", "")
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable, entity, id string) (model.Record, error) {
	var (
		rec  model.Record
		data []byte
	)
	err := row.Scan(&rec.ID, &data)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Record{}, &model.NotFoundError{Entity: entity, ID: id}
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("scan record: %w", err)
	}
	if err := json.Unmarshal(data, &rec.Fields); err != nil {
		return model.Record{}, fmt.Errorf("decode record %s: %w", rec.ID, err)
	}
	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}
	return rec, nil
}

func encodeFields(fields map[string]any) ([]byte, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return data, nil
}

// constraintError maps unique violations to *model.ConstraintError.
func constraintError(entity string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return &model.ConstraintError{Entity: entity, Message: pgErr.Detail, Cause: err}
	}
	return err
}
