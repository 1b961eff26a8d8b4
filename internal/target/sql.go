package target

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"covermig/internal/domain"
)

// SQLTarget is the shared implementation for SQLite, MySQL, and
// Postgres. Records are stored one row per artwork, with captions and
// variants as JSON text columns.
type SQLTarget struct {
	db     *sql.DB
	driver string
	ref    int
}

// NewSQLTarget opens the database and ensures the artworks table exists.
func NewSQLTarget(driver, dsn string, refFormat int) (*SQLTarget, error) {
	db, err := sql.Open(driver, dsnFor(driver, dsn))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == "sqlite" {
		// SQLite only supports one writer; a single connection avoids
		// SQLITE_BUSY under concurrent split retries.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetConnMaxLifetime(10 * time.Minute)
	}

	t := &SQLTarget{db: db, driver: driver, ref: refFormat}
	if err := t.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return t, nil
}

func (t *SQLTarget) migrate() error {
	_, err := t.db.Exec(`CREATE TABLE IF NOT EXISTS artworks (
		id            BIGINT PRIMARY KEY,
		publisher_id  BIGINT NOT NULL,
		kind          VARCHAR(32) NOT NULL,
		width         INT,
		height        INT,
		path          VARCHAR(512),
		captions_json TEXT NOT NULL,
		variants_json TEXT NOT NULL
	)`)
	return err
}

// Upsert writes the batch inside one transaction so a failed batch
// leaves nothing behind and can be retried whole or in halves.
func (t *SQLTarget) Upsert(ctx context.Context, batch []domain.Artwork) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	written := 0
	for _, incoming := range batch {
		existing, found, err := t.fetch(ctx, tx, incoming.ID)
		if err != nil {
			return 0, err
		}
		rec := incoming
		if found {
			rec = domain.MergeArtwork(existing, incoming, t.ref)
		}
		if err := t.store(ctx, tx, rec, found); err != nil {
			return 0, err
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

func (t *SQLTarget) fetch(ctx context.Context, tx *sql.Tx, id int64) (domain.Artwork, bool, error) {
	var (
		art           domain.Artwork
		width, height sql.NullInt64
		path          sql.NullString
		captions      string
		variants      string
	)
	row := tx.QueryRowContext(ctx, t.q(
		`SELECT id, publisher_id, kind, width, height, path, captions_json, variants_json
		 FROM artworks WHERE id = ?`), id)
	err := row.Scan(&art.ID, &art.PublisherID, &art.Kind, &width, &height, &path, &captions, &variants)
	if err == sql.ErrNoRows {
		return domain.Artwork{}, false, nil
	}
	if err != nil {
		return domain.Artwork{}, false, fmt.Errorf("fetch artwork %d: %w", id, err)
	}

	if width.Valid {
		v := int(width.Int64)
		art.Width = &v
	}
	if height.Valid {
		v := int(height.Int64)
		art.Height = &v
	}
	if path.Valid {
		v := path.String
		art.Path = &v
	}
	if err := json.Unmarshal([]byte(captions), &art.Captions); err != nil {
		return domain.Artwork{}, false, fmt.Errorf("decode captions for %d: %w", id, err)
	}
	if err := json.Unmarshal([]byte(variants), &art.Variants); err != nil {
		return domain.Artwork{}, false, fmt.Errorf("decode variants for %d: %w", id, err)
	}
	return art, true, nil
}

func (t *SQLTarget) store(ctx context.Context, tx *sql.Tx, rec domain.Artwork, update bool) error {
	captions, err := json.Marshal(rec.Captions)
	if err != nil {
		return fmt.Errorf("encode captions for %d: %w", rec.ID, err)
	}
	variants, err := json.Marshal(rec.Variants)
	if err != nil {
		return fmt.Errorf("encode variants for %d: %w", rec.ID, err)
	}

	var width, height sql.NullInt64
	if rec.Width != nil {
		width = sql.NullInt64{Int64: int64(*rec.Width), Valid: true}
	}
	if rec.Height != nil {
		height = sql.NullInt64{Int64: int64(*rec.Height), Valid: true}
	}
	var path sql.NullString
	if rec.Path != nil {
		path = sql.NullString{String: *rec.Path, Valid: true}
	}

	if update {
		_, err = tx.ExecContext(ctx, t.q(
			`UPDATE artworks
			 SET publisher_id = ?, kind = ?, width = ?, height = ?, path = ?,
			     captions_json = ?, variants_json = ?
			 WHERE id = ?`),
			rec.PublisherID, rec.Kind, width, height, path, string(captions), string(variants), rec.ID)
	} else {
		_, err = tx.ExecContext(ctx, t.q(
			`INSERT INTO artworks
			 (id, publisher_id, kind, width, height, path, captions_json, variants_json)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
			rec.ID, rec.PublisherID, rec.Kind, width, height, path, string(captions), string(variants))
	}
	if err != nil {
		return fmt.Errorf("store artwork %d: %w", rec.ID, err)
	}
	return nil
}

// OnComplete logs the final table size. It runs once, after every
// source file has been committed.
func (t *SQLTarget) OnComplete(ctx context.Context) error {
	var count int64
	if err := t.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM artworks`).Scan(&count); err != nil {
		return fmt.Errorf("count artworks: %w", err)
	}
	slog.InfoContext(ctx, "target complete", "driver", t.driver, "artworks", count)
	return nil
}

// Close closes the database connection.
func (t *SQLTarget) Close() error {
	return t.db.Close()
}

// q rewrites ? placeholders to $n for Postgres. MySQL and SQLite take
// the query as written.
func (t *SQLTarget) q(query string) string {
	if t.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
