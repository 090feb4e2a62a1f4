// Package persistence stores generated grids in SQLite so a server can restore
// a layout without probing the terrain again.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/gravitas-games/hexmove/internal/grid"
	"github.com/gravitas-games/hexmove/internal/hex"
)

var ErrNotFound = errors.New("persistence: snapshot not found")

// DB wraps a SQLite connection for grid snapshots.
type DB struct {
	conn   *sqlx.DB
	logger *slog.Logger
}

// Open opens or creates a SQLite database at the given path.
func Open(path string, logger *slog.Logger) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	db := &DB{conn: conn, logger: logger}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		radius INTEGER NOT NULL,
		convention TEXT NOT NULL,
		invert_q INTEGER NOT NULL,
		invert_r INTEGER NOT NULL,
		swap_qr INTEGER NOT NULL,
		cell_count INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cells (
		snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		index_q INTEGER NOT NULL,
		index_r INTEGER NOT NULL,
		x REAL NOT NULL,
		y REAL NOT NULL,
		z REAL NOT NULL,
		kind TEXT NOT NULL,
		PRIMARY KEY (snapshot_id, q, r)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SnapshotInfo describes a stored snapshot without its cells.
type SnapshotInfo struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	CreatedAt  int64  `db:"created_at"` // unix nanoseconds
	Radius     int    `db:"radius"`
	Convention string `db:"convention"`
	InvertQ    bool   `db:"invert_q"`
	InvertR    bool   `db:"invert_r"`
	SwapQR     bool   `db:"swap_qr"`
	CellCount  int    `db:"cell_count"`
}

// Created returns the creation time.
func (s SnapshotInfo) Created() time.Time { return time.Unix(0, s.CreatedAt) }

type cellRow struct {
	Q      int32   `db:"q"`
	R      int32   `db:"r"`
	IndexQ int32   `db:"index_q"`
	IndexR int32   `db:"index_r"`
	X      float64 `db:"x"`
	Y      float64 `db:"y"`
	Z      float64 `db:"z"`
	Kind   string  `db:"kind"`
}

// SaveSnapshot writes snap under a fresh id and returns it.
func (db *DB) SaveSnapshot(ctx context.Context, name string, snap grid.Snapshot) (string, error) {
	id := uuid.NewString()

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO snapshots
		(id, name, created_at, radius, convention, invert_q, invert_r, swap_qr, cell_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, time.Now().UnixNano(), snap.Radius, snap.Convention.String(),
		snap.Transform.InvertQ, snap.Transform.InvertR, snap.Transform.SwapQR, len(snap.Cells))
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO cells
		(snapshot_id, q, r, index_q, index_r, x, y, z, kind)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for _, c := range snap.Cells {
		if _, err := stmt.ExecContext(ctx, id, c.Q, c.R, c.IndexQ, c.IndexR, c.X, c.Y, c.Z, c.Kind.String()); err != nil {
			return "", fmt.Errorf("insert cell %d,%d: %w", c.Q, c.R, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	db.logger.Info("snapshot saved", "id", id, "name", name, "cells", len(snap.Cells))
	return id, nil
}

// LoadSnapshot reads a snapshot and its cells.
func (db *DB) LoadSnapshot(ctx context.Context, id string) (grid.Snapshot, error) {
	var info SnapshotInfo
	err := db.conn.GetContext(ctx, &info, `SELECT * FROM snapshots WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return grid.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return grid.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}

	conv, err := hex.ParseConvention(info.Convention)
	if err != nil {
		return grid.Snapshot{}, fmt.Errorf("load snapshot %s: %w", id, err)
	}

	var rows []cellRow
	err = db.conn.SelectContext(ctx, &rows,
		`SELECT q, r, index_q, index_r, x, y, z, kind FROM cells WHERE snapshot_id = ? ORDER BY r, q`, id)
	if err != nil {
		return grid.Snapshot{}, fmt.Errorf("load cells: %w", err)
	}

	snap := grid.Snapshot{
		Radius:     info.Radius,
		Convention: conv,
		Transform:  hex.LabelTransform{InvertQ: info.InvertQ, InvertR: info.InvertR, SwapQR: info.SwapQR},
		Cells:      make([]grid.CellRecord, 0, len(rows)),
	}
	for _, r := range rows {
		kind, err := grid.ParseKind(r.Kind)
		if err != nil {
			return grid.Snapshot{}, fmt.Errorf("load cell %d,%d: %w", r.Q, r.R, err)
		}
		snap.Cells = append(snap.Cells, grid.CellRecord{
			Q: r.Q, R: r.R, IndexQ: r.IndexQ, IndexR: r.IndexR,
			X: r.X, Y: r.Y, Z: r.Z, Kind: kind,
		})
	}
	return snap, nil
}

// ListSnapshots returns stored snapshots, newest first.
func (db *DB) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	var out []SnapshotInfo
	if err := db.conn.SelectContext(ctx, &out, `SELECT * FROM snapshots ORDER BY created_at DESC, id`); err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return out, nil
}

// Latest returns the newest snapshot, or ErrNotFound on an empty store.
func (db *DB) Latest(ctx context.Context) (SnapshotInfo, error) {
	var info SnapshotInfo
	err := db.conn.GetContext(ctx, &info, `SELECT * FROM snapshots ORDER BY created_at DESC, id LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotInfo{}, ErrNotFound
	}
	return info, err
}

// DeleteSnapshot removes a snapshot and its cells.
func (db *DB) DeleteSnapshot(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cells WHERE snapshot_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}
