// Package sqlitevec provides a SQLite-backed asset index using sqlite-vec.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/pkg/index"
)

// SQLiteVecIndex implements index.Index using SQLite with sqlite-vec.
//
// vec0 virtual tables use integer rowids, so a plain mapping table carries
// the string asset ids and the owner/location attributes, keyed by the
// same rowid as the embedding row. The owner_key metadata column on the
// vec0 table makes owner-filtered KNN happen inside the index rather than
// as a post-filter.
type SQLiteVecIndex struct {
	db         *sql.DB
	dimensions uint
	logger     *zap.Logger
}

// Config holds configuration for the SQLite vec index.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions is the embedding dimensionality. Required.
	Dimensions uint
}

// NewSQLiteVecIndex creates a SQLite-backed asset index.
func NewSQLiteVecIndex(c Config, logger *zap.Logger) (*SQLiteVecIndex, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if c.Dimensions == 0 {
		return nil, fmt.Errorf("embedding dimensions cannot be 0, must be configured")
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if c.DBPath == ":memory:" {
		// each pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	x := &SQLiteVecIndex{
		db:         db,
		dimensions: c.Dimensions,
		logger:     logger,
	}

	if err := x.EnsureCollection(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("sqlite-vec asset index initialized",
		zap.String("db_path", c.DBPath),
		zap.Uint("dimensions", c.Dimensions),
		zap.String("vec_version", vecVersion),
	)

	return x, nil
}

// EnsureCollection creates the mapping table and the vec0 virtual table
// if they do not exist. Safe to call repeatedly and concurrently; an
// existing collection is left untouched.
func (x *SQLiteVecIndex) EnsureCollection(ctx context.Context) error {
	_, err := x.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS asset_records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			asset_id TEXT NOT NULL UNIQUE,
			owner_key TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return fmt.Errorf("%w: creating records table: %v", index.ErrStoreUnavailable, err)
	}

	for _, ddl := range []string{
		`CREATE INDEX IF NOT EXISTS idx_asset_records_owner ON asset_records(owner_key)`,
		`CREATE INDEX IF NOT EXISTS idx_asset_records_location ON asset_records(location)`,
	} {
		if _, err := x.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("%w: creating attribute index: %v", index.ErrStoreUnavailable, err)
		}
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS asset_embeddings USING vec0(
			embedding float[%d] distance_metric=cosine,
			owner_key text
		)`,
		x.dimensions,
	)
	if _, err := x.db.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("%w: creating vec0 table: %v", index.ErrStoreUnavailable, err)
	}

	return nil
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// deserializeFloat32 converts a little-endian byte slice back to a float32 slice.
func deserializeFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding blob length %d: must be divisible by 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Insert appends one record and returns its assigned id. The mapping row
// is written first to obtain the rowid shared with the vec0 row.
func (x *SQLiteVecIndex) Insert(ctx context.Context, ownerKey, location string, vector []float32) (string, error) {
	if ownerKey == "" {
		return "", fmt.Errorf("owner key is required")
	}
	if err := index.ValidateVector(vector, x.dimensions); err != nil {
		return "", err
	}
	if err := x.EnsureCollection(ctx); err != nil {
		return "", err
	}

	id := uuid.NewString()

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: beginning transaction: %v", index.ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO asset_records(asset_id, owner_key, location) VALUES (?, ?, ?)`,
		id, ownerKey, location,
	)
	if err != nil {
		return "", fmt.Errorf("%w: inserting record: %v", index.ErrStoreUnavailable, err)
	}

	rowID, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("%w: getting rowid: %v", index.ErrStoreUnavailable, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO asset_embeddings(rowid, embedding, owner_key) VALUES (?, ?, ?)`,
		rowID, serializeFloat32(vector), ownerKey,
	); err != nil {
		return "", fmt.Errorf("%w: inserting embedding: %v", index.ErrStoreUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: committing transaction: %v", index.ErrStoreUnavailable, err)
	}

	x.logger.Debug("inserted asset",
		zap.String("id", id),
		zap.String("owner_key", ownerKey),
	)

	return id, nil
}

// Query runs a KNN search via vec0 MATCH, joined back to the mapping
// table for ids and attributes. The owner filter is applied on the vec0
// metadata column, so limit bounds the filtered result count. sqlite-vec
// reports cosine distance; score is derived from it.
func (x *SQLiteVecIndex) Query(ctx context.Context, vector []float32, limit int, ownerKey string) ([]index.ScoredRecord, error) {
	if err := index.ValidateVector(vector, x.dimensions); err != nil {
		return nil, err
	}
	if err := index.ValidateLimit(limit); err != nil {
		return nil, err
	}
	if err := x.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	// vec0 allows only a single `ORDER BY distance` term on a KNN query,
	// so the KNN runs in a materialized CTE and the compound ordering is
	// applied outside it.
	query := `
		WITH knn AS MATERIALIZED (
			SELECT
				r.asset_id,
				r.owner_key,
				r.location,
				e.distance,
				e.rowid AS embedding_rowid
			FROM asset_embeddings e
			INNER JOIN asset_records r ON r.rowid = e.rowid
			WHERE e.embedding MATCH ?
				AND e.k = ?
	`
	args := []any{serializeFloat32(vector), limit}

	if ownerKey != "" {
		query += `
			AND e.owner_key = ?
		`
		args = append(args, ownerKey)
	}

	// Secondary rowid key keeps equal-distance ordering stable across
	// repeated identical queries.
	query += `
		)
		SELECT asset_id, owner_key, location, distance
		FROM knn
		ORDER BY distance, embedding_rowid
	`

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying vectors: %v", index.ErrStoreUnavailable, err)
	}
	defer rows.Close()

	results := []index.ScoredRecord{}
	for rows.Next() {
		var rec index.ScoredRecord
		var distance float64
		if err := rows.Scan(&rec.ID, &rec.OwnerKey, &rec.Location, &distance); err != nil {
			return nil, fmt.Errorf("%w: scanning query result: %v", index.ErrStoreUnavailable, err)
		}
		rec.Distance = float32(distance)
		rec.Score = index.ScoreFromDistance(rec.Distance)
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating query results: %v", index.ErrStoreUnavailable, err)
	}

	x.logger.Debug("queried sqlite-vec",
		zap.Int("results", len(results)),
	)

	return results, nil
}

// Delete enumerates matching rowids (capped at index.DeleteScanLimit)
// and removes each record individually from both tables. A row that
// fails to delete is counted in Matched but not Deleted.
func (x *SQLiteVecIndex) Delete(ctx context.Context, ownerKey, location string) (index.DeleteResult, error) {
	var result index.DeleteResult

	if ownerKey == "" && location == "" {
		return result, index.ErrMissingFilter
	}
	if err := x.EnsureCollection(ctx); err != nil {
		return result, err
	}

	query := `SELECT rowid FROM asset_records WHERE 1=1`
	args := []any{}
	if ownerKey != "" {
		query += ` AND owner_key = ?`
		args = append(args, ownerKey)
	}
	if location != "" {
		query += ` AND location = ?`
		args = append(args, location)
	}
	query += ` LIMIT ?`
	args = append(args, index.DeleteScanLimit)

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return result, fmt.Errorf("%w: enumerating records: %v", index.ErrStoreUnavailable, err)
	}

	var rowIDs []int64
	for rows.Next() {
		var rowID int64
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return result, fmt.Errorf("%w: scanning rowid: %v", index.ErrStoreUnavailable, err)
		}
		rowIDs = append(rowIDs, rowID)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return result, fmt.Errorf("%w: iterating rowids: %v", index.ErrStoreUnavailable, err)
	}
	// Close the cursor before issuing deletes; SQLite serializes on the
	// connection.
	rows.Close()

	result.Matched = len(rowIDs)

	for _, rowID := range rowIDs {
		if _, err := x.db.ExecContext(ctx,
			`DELETE FROM asset_embeddings WHERE rowid = ?`, rowID,
		); err != nil {
			x.logger.Warn("failed to delete embedding row",
				zap.Int64("rowid", rowID),
				zap.Error(err),
			)
			continue
		}
		if _, err := x.db.ExecContext(ctx,
			`DELETE FROM asset_records WHERE rowid = ?`, rowID,
		); err != nil {
			x.logger.Warn("failed to delete record row",
				zap.Int64("rowid", rowID),
				zap.Error(err),
			)
			continue
		}
		result.Deleted++
	}

	x.logger.Debug("deleted assets",
		zap.Int("matched", result.Matched),
		zap.Int("deleted", result.Deleted),
	)

	return result, nil
}

// List enumerates stored records for debugging.
func (x *SQLiteVecIndex) List(ctx context.Context, ownerKey string, limit int, includeVector bool) ([]index.Record, error) {
	if limit <= 0 {
		limit = 1
	}
	if err := x.EnsureCollection(ctx); err != nil {
		return nil, err
	}

	query := `SELECT rowid, asset_id, owner_key, location FROM asset_records`
	args := []any{}
	if ownerKey != "" {
		query += ` WHERE owner_key = ?`
		args = append(args, ownerKey)
	}
	query += ` ORDER BY rowid LIMIT ?`
	args = append(args, limit)

	rows, err := x.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: listing records: %v", index.ErrStoreUnavailable, err)
	}

	type recordRow struct {
		rowID int64
		rec   index.Record
	}
	var recordRows []recordRow
	for rows.Next() {
		var rr recordRow
		if err := rows.Scan(&rr.rowID, &rr.rec.ID, &rr.rec.OwnerKey, &rr.rec.Location); err != nil {
			rows.Close()
			return nil, fmt.Errorf("%w: scanning record: %v", index.ErrStoreUnavailable, err)
		}
		recordRows = append(recordRows, rr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("%w: iterating records: %v", index.ErrStoreUnavailable, err)
	}
	rows.Close()

	records := make([]index.Record, 0, len(recordRows))
	for _, rr := range recordRows {
		if includeVector {
			var blob []byte
			err := x.db.QueryRowContext(ctx,
				`SELECT embedding FROM asset_embeddings WHERE rowid = ?`, rr.rowID,
			).Scan(&blob)
			if err == nil && len(blob) > 0 {
				rr.rec.Vector, _ = deserializeFloat32(blob)
			}
		}
		records = append(records, rr.rec)
	}

	return records, nil
}

// Close closes the database.
func (x *SQLiteVecIndex) Close() error {
	return x.db.Close()
}

var (
	_ index.Index  = (*SQLiteVecIndex)(nil)
	_ index.Lister = (*SQLiteVecIndex)(nil)
)
