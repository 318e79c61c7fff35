// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Thermoquad/thermogate/pkg/gateway"
)

// ExchangeStore persists resolved exchanges.
type ExchangeStore struct {
	db *sql.DB
}

func NewExchangeStore(db *sql.DB) *ExchangeStore { return &ExchangeStore{db: db} }

// Record implements gateway.ExchangeLog.
func (s *ExchangeStore) Record(ctx context.Context, rec gateway.ExchangeRecord) error {
	var response *string
	if rec.Response != "" {
		response = &rec.Response
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exchanges (id, command, target, response, outcome, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.Command,
		rec.Target,
		response,
		rec.Outcome,
		rec.StartedAt.UTC(),
		rec.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert exchange %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to limit exchanges, newest first.
func (s *ExchangeStore) Recent(ctx context.Context, limit int) ([]gateway.ExchangeRecord, error) {
	limit = clampLimit(limit)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, command, target, response, outcome, started_at, finished_at
		FROM exchanges ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]gateway.ExchangeRecord, 0, limit)
	for rows.Next() {
		var rec gateway.ExchangeRecord
		var response sql.NullString
		if err := rows.Scan(&rec.ID, &rec.Command, &rec.Target, &response, &rec.Outcome,
			&rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		rec.Response = response.String
		rec.StartedAt = rec.StartedAt.UTC()
		rec.FinishedAt = rec.FinishedAt.UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
