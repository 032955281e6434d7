package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound = errors.New("db: record not found")
	ErrExists   = errors.New("db: record already exists")
)

// RecordStore keeps entities of one kind as JSON documents.
type RecordStore[T any] struct {
	db     *DB
	kind   string
	id     func(T) int64
	withID func(T, int64) T
	now    func() time.Time
}

func NewRecordStore[T any](db *DB, kind string, id func(T) int64, withID func(T, int64) T) *RecordStore[T] {
	return &RecordStore[T]{db: db, kind: kind, id: id, withID: withID, now: time.Now}
}

func (s *RecordStore[T]) Kind() string { return s.kind }

// List returns the records in insertion order.
func (s *RecordStore[T]) List(ctx context.Context) ([]T, error) {
	return listRecords[T](ctx, s.db, s.kind)
}

func (s *RecordStore[T]) Get(ctx context.Context, id int64) (T, error) {
	return getRecord[T](ctx, s.db, s.kind, id)
}

func (s *RecordStore[T]) Create(ctx context.Context, item T) (T, error) {
	var out T
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = s.CreateTx(ctx, tx, item)
		return err
	})
	return out, err
}

// CreateTx inserts item inside tx. A zero id is replaced by the next free one.
func (s *RecordStore[T]) CreateTx(ctx context.Context, tx *sql.Tx, item T) (T, error) {
	id := s.id(item)
	if id == 0 {
		if err := tx.QueryRowContext(ctx,
			"SELECT COALESCE(MAX(id), 0) + 1 FROM records WHERE kind = ?", s.kind,
		).Scan(&id); err != nil {
			return item, err
		}
		item = s.withID(item, id)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM records WHERE kind = ? AND id = ?)", s.kind, id,
	).Scan(&exists); err != nil {
		return item, err
	}
	if exists {
		return item, fmt.Errorf("%w: %s %d", ErrExists, s.kind, id)
	}

	body, err := json.Marshal(item)
	if err != nil {
		return item, err
	}
	now := s.now().UnixMilli()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO records (kind, id, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		s.kind, id, string(body), now, now,
	)
	return item, err
}

func (s *RecordStore[T]) Update(ctx context.Context, item T) (T, error) {
	var out T
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		var err error
		out, err = s.UpdateTx(ctx, tx, item)
		return err
	})
	return out, err
}

func (s *RecordStore[T]) UpdateTx(ctx context.Context, tx *sql.Tx, item T) (T, error) {
	body, err := json.Marshal(item)
	if err != nil {
		return item, err
	}
	res, err := tx.ExecContext(ctx,
		"UPDATE records SET body = ?, updated_at = ? WHERE kind = ? AND id = ?",
		string(body), s.now().UnixMilli(), s.kind, s.id(item),
	)
	if err != nil {
		return item, err
	}
	if err := expectRow(res, s.kind, s.id(item)); err != nil {
		return item, err
	}
	return item, nil
}

func (s *RecordStore[T]) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM records WHERE kind = ? AND id = ?", s.kind, id)
	if err != nil {
		return err
	}
	return expectRow(res, s.kind, id)
}

func expectRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	return nil
}

func listRecords[T any](ctx context.Context, q querier, kind string) ([]T, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT body FROM records WHERE kind = ? ORDER BY created_at, id", kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var item T
		if err := json.Unmarshal([]byte(body), &item); err != nil {
			return nil, fmt.Errorf("decode %s record: %w", kind, err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func getRecord[T any](ctx context.Context, q querier, kind string, id int64) (T, error) {
	var item T
	var body string
	err := q.QueryRowContext(ctx,
		"SELECT body FROM records WHERE kind = ? AND id = ?", kind, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return item, fmt.Errorf("%w: %s %d", ErrNotFound, kind, id)
	}
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal([]byte(body), &item); err != nil {
		return item, fmt.Errorf("decode %s record: %w", kind, err)
	}
	return item, nil
}
