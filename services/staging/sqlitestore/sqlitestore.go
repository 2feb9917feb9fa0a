package sqlitestore

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"govdata-etl/lib/configutil/sqlconfig"
	"govdata-etl/lib/sqlutil"
	"govdata-etl/services/extract"
)

//go:embed schema.sql
var Schema string

// Store keeps every staged record as one JSON row. A collection exists
// while it holds at least one document.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite file at path.
func Open(ctx context.Context, path string) (Store, error) {
	db, _, err := sqlconfig.Struct{Driver: "sqlite", File: path}.OpenDB(ctx)
	if err != nil {
		return Store{}, err
	}
	return New(ctx, db)
}

// New wraps an already open database, applying the schema.
func New(ctx context.Context, db *sql.DB) (Store, error) {
	err := sqlutil.ExecScript(ctx, db, Schema)
	if err != nil {
		return Store{}, fmt.Errorf("apply staging schema: %w", err)
	}
	return Store{db: db}, nil
}

func (s Store) ListCollectionNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT collection FROM staged_document ORDER BY collection")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		err := rows.Scan(&name)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s Store) DropCollection(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM staged_document WHERE collection = ?", name)
	return err
}

func (s Store) InsertMany(ctx context.Context, name string, records []extract.Record) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO staged_document (collection, payload) VALUES (?, ?)")
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	ids := make([]string, 0, len(records))
	for _, record := range records {
		payload, err := json.Marshal(record)
		if err != nil {
			return nil, err
		}
		res, err := stmt.ExecContext(ctx, name, string(payload))
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, strconv.FormatInt(id, 10))
	}

	err = tx.Commit()
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s Store) FindAll(ctx context.Context, name string) ([]extract.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT payload FROM staged_document WHERE collection = ? ORDER BY id", name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []extract.Record
	for rows.Next() {
		var payload string
		err := rows.Scan(&payload)
		if err != nil {
			return nil, err
		}
		var record extract.Record
		err = json.Unmarshal([]byte(payload), &record)
		if err != nil {
			return nil, fmt.Errorf("decode staged document: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s Store) Close(context.Context) error {
	return s.db.Close()
}
