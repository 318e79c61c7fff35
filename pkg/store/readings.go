// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Thermoquad/thermogate/pkg/thermonet"
)

// DefaultLimit is the number of rows returned when no limit is given.
const DefaultLimit = 100

// MaxLimit caps the rows returned by one query.
const MaxLimit = 1000

// StoredReading is one persisted sensor reading.
type StoredReading struct {
	ID         string    `json:"id"`
	RadioID    string    `json:"radio_id"`
	Kind       string    `json:"kind"`
	Value      float64   `json:"value"`
	ReceivedAt time.Time `json:"received_at"`
}

// ReadingStore persists telemetry. It satisfies the gateway's telemetry
// sink interface.
type ReadingStore struct {
	db *sql.DB
}

func NewReadingStore(db *sql.DB) *ReadingStore { return &ReadingStore{db: db} }

const insertReading = `
		INSERT INTO readings (id, radio_id, kind, value, received_at)
		VALUES (?, ?, ?, ?, ?)
	`

// Publish stores every reading of t in one transaction.
func (r *ReadingStore) Publish(ctx context.Context, t thermonet.Telemetry) error {
	if len(t.Readings) == 0 {
		return nil
	}
	at := t.ReceivedAt
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin readings transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, reading := range t.Readings {
		if _, err := tx.ExecContext(ctx, insertReading,
			uuid.NewString(),
			t.RadioID(),
			reading.Kind.Key(),
			float64(reading.Value),
			at,
		); err != nil {
			return fmt.Errorf("insert %s reading: %w", reading.Kind, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit readings: %w", err)
	}
	return nil
}

// Latest returns up to limit readings, newest first, optionally filtered
// to one radio.
func (r *ReadingStore) Latest(ctx context.Context, radioID string, limit int) ([]StoredReading, error) {
	limit = clampLimit(limit)

	q := `SELECT id, radio_id, kind, value, received_at FROM readings`
	args := []any{}
	if radioID != "" {
		q += ` WHERE radio_id = ?`
		args = append(args, radioID)
	}
	q += ` ORDER BY received_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]StoredReading, 0, limit)
	for rows.Next() {
		var sr StoredReading
		if err := rows.Scan(&sr.ID, &sr.RadioID, &sr.Kind, &sr.Value, &sr.ReceivedAt); err != nil {
			return nil, err
		}
		sr.ReceivedAt = sr.ReceivedAt.UTC()
		out = append(out, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}
