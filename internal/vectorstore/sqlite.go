package vectorstore

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"medical-rag-chatbot/models"
	"medical-rag-chatbot/utils"

	_ "modernc.org/sqlite"
)

// DBFileName is the index database inside INDEX_PATH.
const DBFileName = "index.db"

// SQLiteStore persists the index to a single SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens or creates <dir>/index.db.
func OpenSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create index directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, DBFileName)

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("cannot open index database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, path: path}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("index migration failed: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS index_meta (
		id              INTEGER PRIMARY KEY CHECK (id = 1),
		embedding_model TEXT NOT NULL,
		dimension       INTEGER NOT NULL,
		entries         INTEGER NOT NULL,
		built_at        TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS chunks (
		position     INTEGER PRIMARY KEY,
		chunk_id     TEXT NOT NULL UNIQUE,
		document_id  TEXT NOT NULL,
		source       TEXT NOT NULL,
		chunk_index  INTEGER NOT NULL,
		char_offset  INTEGER NOT NULL,
		page         INTEGER NOT NULL DEFAULT 0,
		text         BLOB,
		compression  TEXT NOT NULL DEFAULT 'none',
		vector       BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source, chunk_index);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

// Rebuild replaces every stored entry and the metadata in one transaction.
func (s *SQLiteStore) Rebuild(ctx context.Context, meta models.IndexMeta, entries []models.IndexEntry) error {
	if err := CheckDimensions(entries, meta.Dimension); err != nil {
		return err
	}
	meta.Entries = len(entries)
	if meta.BuiltAt.IsZero() {
		meta.BuiltAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM index_meta`); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (position, chunk_id, document_id, source, chunk_index, char_offset, page, text, compression, vector)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		text, algo, err := utils.CompressText(e.Chunk.Text)
		if err != nil {
			return fmt.Errorf("compress chunk %s: %w", e.Chunk.ID, err)
		}
		c := e.Chunk
		if _, err := stmt.ExecContext(ctx, i, c.ID, c.DocumentID, c.Source, c.Index, c.Offset, c.Page,
			text, string(algo), encodeVector(e.Vector)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_meta (id, embedding_model, dimension, entries, built_at) VALUES (1, ?, ?, ?, ?)`,
		meta.EmbeddingModel, meta.Dimension, meta.Entries, meta.BuiltAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}

	return tx.Commit()
}

// Meta returns the stored metadata. An index that was never built
// returns the zero IndexMeta.
func (s *SQLiteStore) Meta(ctx context.Context) (models.IndexMeta, error) {
	var meta models.IndexMeta
	var builtAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT embedding_model, dimension, entries, built_at FROM index_meta WHERE id = 1`,
	).Scan(&meta.EmbeddingModel, &meta.Dimension, &meta.Entries, &builtAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.IndexMeta{}, nil
	}
	if err != nil {
		return models.IndexMeta{}, fmt.Errorf("read meta: %w", err)
	}
	if meta.BuiltAt, err = time.Parse(time.RFC3339Nano, builtAt); err != nil {
		return models.IndexMeta{}, fmt.Errorf("parse built_at: %w", err)
	}
	return meta, nil
}

// Load reads the whole index into a FlatIndex.
func (s *SQLiteStore) Load(ctx context.Context) (models.IndexMeta, *FlatIndex, error) {
	meta, err := s.Meta(ctx)
	if err != nil {
		return models.IndexMeta{}, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, document_id, source, chunk_index, char_offset, page, text, compression, vector
		 FROM chunks ORDER BY position`)
	if err != nil {
		return models.IndexMeta{}, nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	entries := make([]models.IndexEntry, 0, meta.Entries)
	for rows.Next() {
		var (
			c           models.Chunk
			text, vec   []byte
			compression string
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Source, &c.Index, &c.Offset, &c.Page, &text, &compression, &vec); err != nil {
			return models.IndexMeta{}, nil, fmt.Errorf("scan chunk: %w", err)
		}
		if c.Text, err = utils.DecompressText(text, utils.CompressionAlgorithm(compression)); err != nil {
			return models.IndexMeta{}, nil, fmt.Errorf("decompress chunk %s: %w", c.ID, err)
		}
		vector, err := decodeVector(vec)
		if err != nil {
			return models.IndexMeta{}, nil, fmt.Errorf("decode chunk %s: %w", c.ID, err)
		}
		entries = append(entries, models.IndexEntry{Chunk: c, Vector: vector})
	}
	if err := rows.Err(); err != nil {
		return models.IndexMeta{}, nil, err
	}

	if len(entries) != meta.Entries {
		return models.IndexMeta{}, nil, fmt.Errorf("index is inconsistent: meta lists %d entries, found %d", meta.Entries, len(entries))
	}
	if len(entries) > 0 {
		if err := CheckDimensions(entries, meta.Dimension); err != nil {
			return models.IndexMeta{}, nil, err
		}
	}

	idx, err := NewFlatIndex(entries)
	if err != nil {
		return models.IndexMeta{}, nil, err
	}
	return meta, idx, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob has %d bytes", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
