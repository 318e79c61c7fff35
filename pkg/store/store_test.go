// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Thermoquad/thermogate/pkg/gateway"
	"github.com/Thermoquad/thermogate/pkg/thermonet"
	"github.com/Thermoquad/thermogate/pkg/xbee"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return c
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var sensorTelemetry = thermonet.Telemetry{
	Source: xbee.Address(0x0013A20040AEBA93),
	Readings: []thermonet.SensorReading{
		{Kind: thermonet.Temperature, Value: 21.5},
		{Kind: thermonet.Humidity, Value: 40},
	},
	ReceivedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
}

// ============================================================
// Readings
// ============================================================

func TestReadingStore_Publish(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReadingStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertReading)).
		WithArgs(sqlmock.AnyArg(), "40aeba93", "temperature", 21.5, sensorTelemetry.ReceivedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertReading)).
		WithArgs(sqlmock.AnyArg(), "40aeba93", "humidity", 40.0, sensorTelemetry.ReceivedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Publish(testCtx(t), sensorTelemetry); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestReadingStore_PublishRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReadingStore(db)
	errDisk := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertReading)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertReading)).
		WillReturnError(errDisk)
	mock.ExpectRollback()

	if err := repo.Publish(testCtx(t), sensorTelemetry); !errors.Is(err, errDisk) {
		t.Fatalf("Publish error = %v, want %v", err, errDisk)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestReadingStore_PublishEmpty(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReadingStore(db)

	if err := repo.Publish(testCtx(t), thermonet.Telemetry{Source: 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestReadingStore_Latest(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReadingStore(db)
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "radio_id", "kind", "value", "received_at"}).
		AddRow("r2", "40aeba93", "humidity", 40.0, at).
		AddRow("r1", "40aeba93", "temperature", 21.5, at)
	mock.ExpectQuery(regexp.QuoteMeta(
		`SELECT id, radio_id, kind, value, received_at FROM readings WHERE radio_id = ? ORDER BY received_at DESC LIMIT ?`)).
		WithArgs("40aeba93", 2).
		WillReturnRows(rows)

	got, err := repo.Latest(testCtx(t), "40aeba93", 2)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(got) != 2 || got[0].ID != "r2" || got[1].Kind != "temperature" || got[1].Value != 21.5 {
		t.Errorf("Latest = %+v", got)
	}
	if !got[0].ReceivedAt.Equal(at) {
		t.Errorf("received_at = %v", got[0].ReceivedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, DefaultLimit},
		{-5, DefaultLimit},
		{10, 10},
		{MaxLimit + 1, MaxLimit},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

// ============================================================
// Exchanges
// ============================================================

func TestExchangeStore_Record(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExchangeStore(db)
	started := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	rec := gateway.ExchangeRecord{
		ID:         "6f1c",
		Command:    "TS:ON",
		Target:     "conn:10.0.0.7:50412",
		Response:   "TS:ACK",
		Outcome:    gateway.OutcomeReply,
		StartedAt:  started,
		FinishedAt: started.Add(800 * time.Millisecond),
	}

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO exchanges`)).
		WithArgs("6f1c", "TS:ON", "conn:10.0.0.7:50412", "TS:ACK", "reply", started, started.Add(800*time.Millisecond)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Record(testCtx(t), rec); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestExchangeStore_RecordWithoutResponse(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExchangeStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO exchanges`)).
		WithArgs("a1", "ST", "dial:10.0.0.7:6232", nil, "overwritten", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Record(testCtx(t), gateway.ExchangeRecord{
		ID:      "a1",
		Command: "ST",
		Target:  "dial:10.0.0.7:6232",
		Outcome: gateway.OutcomeOverwritten,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

func TestExchangeStore_Recent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewExchangeStore(db)
	at := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{"id", "command", "target", "response", "outcome", "started_at", "finished_at"}).
		AddRow("b", "ST", "conn:x", nil, "timeout", at, at.Add(10*time.Second)).
		AddRow("a", "TS:ON", "conn:y", "TS:ACK", "reply", at, at.Add(time.Second))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM exchanges ORDER BY started_at DESC LIMIT ?`)).
		WithArgs(DefaultLimit).
		WillReturnRows(rows)

	got, err := repo.Recent(testCtx(t), 0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 || got[0].Response != "" || got[1].Response != "TS:ACK" || got[0].Outcome != "timeout" {
		t.Errorf("Recent = %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("mock expectations: %v", err)
	}
}

// ============================================================
// SQLite
// ============================================================

func TestOpen_RoundTrip(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "thermogate.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	readings := NewReadingStore(db)
	if err := readings.Publish(testCtx(t), sensorTelemetry); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, err := readings.Latest(testCtx(t), "", 10)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Latest returned %d rows, want 2", len(got))
	}
	for _, r := range got {
		if r.RadioID != "40aeba93" {
			t.Errorf("radio_id = %q", r.RadioID)
		}
	}

	none, err := readings.Latest(testCtx(t), "ffffffff", 10)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("filtered Latest returned %d rows", len(none))
	}
}
