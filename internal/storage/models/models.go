package models

import "time"

// DetectionRecord is one row of detection history. Only derived values are
// stored; the analyzed text itself is kept as a hash.
type DetectionRecord struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	TextHash   string    `json:"text_hash"`
	TextLength int       `json:"text_length"`
	Score      float64   `json:"score"`
	Level      string    `json:"level"`
	LatencyMS  int       `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
