package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/jasper-ai/backend/internal/storage/models"
	"github.com/jasper-ai/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS detection_history (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		text_hash TEXT NOT NULL,
		text_length INTEGER NOT NULL,
		score REAL NOT NULL,
		level TEXT NOT NULL,
		latency_ms INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_detection_kind ON detection_history(kind);
	CREATE INDEX IF NOT EXISTS idx_detection_created ON detection_history(created_at);
	`

	if _, err := c.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertDetection(rec *models.DetectionRecord) error {
	query := `
		INSERT INTO detection_history (id, kind, text_hash, text_length, score, level, latency_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := c.db.Exec(
		query,
		rec.ID,
		rec.Kind,
		rec.TextHash,
		rec.TextLength,
		rec.Score,
		rec.Level,
		rec.LatencyMS,
		rec.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert detection record: %w", err)
	}

	return nil
}

func (c *Client) ListDetections(kind string, limit int) ([]models.DetectionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, kind, text_hash, text_length, score, level, latency_ms, created_at
		FROM detection_history
	`
	args := []interface{}{}
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, kind)
	}
	query += " ORDER BY created_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := c.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detection history: %w", err)
	}
	defer rows.Close()

	var records []models.DetectionRecord
	for rows.Next() {
		var rec models.DetectionRecord
		var createdAt int64
		if err := rows.Scan(
			&rec.ID,
			&rec.Kind,
			&rec.TextHash,
			&rec.TextLength,
			&rec.Score,
			&rec.Level,
			&rec.LatencyMS,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan detection record: %w", err)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate detection history: %w", err)
	}

	return records, nil
}
