package main

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

// BackupLedger keeps the history of successful backups.
type BackupLedger interface {
	Record(ctx context.Context, rec BackupRecord) error
	List(ctx context.Context) ([]BackupRecord, error)
}

type mysqlLedger struct {
	db *sql.DB
}

func newMySQLLedger(db *sql.DB) *mysqlLedger {
	return &mysqlLedger{db: db}
}

func (l *mysqlLedger) Record(ctx context.Context, rec BackupRecord) error {
	created, err := time.Parse(time.RFC3339, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("parse created_at: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		"INSERT INTO backups (object_key, url, size_bytes, created_at) VALUES (?, ?, ?, ?)",
		rec.Key, sqlNullString(rec.URL), rec.SizeBytes, created.UTC())
	if err != nil {
		return fmt.Errorf("insert backup: %w", err)
	}
	return nil
}

func (l *mysqlLedger) List(ctx context.Context) ([]BackupRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT object_key, IFNULL(url,''), size_bytes, created_at FROM backups ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("query backups: %w", err)
	}
	defer rows.Close()

	out := []BackupRecord{}
	for rows.Next() {
		var rec BackupRecord
		var created interface{}
		if err := rows.Scan(&rec.Key, &rec.URL, &rec.SizeBytes, &created); err != nil {
			return nil, fmt.Errorf("scan backup: %w", err)
		}
		rec.CreatedAt = formatCreatedAt(created)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backups: %w", err)
	}
	return out, nil
}

// mysqlDateTime is how the driver renders DATETIME/TIMESTAMP without
// parseTime=true. Values are stored in UTC.
const mysqlDateTime = "2006-01-02 15:04:05"

// formatCreatedAt renders a scanned created_at as UTC RFC 3339. Text the
// driver hands back unparsed is returned as-is.
func formatCreatedAt(v interface{}) string {
	var s string
	switch v := v.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case []byte:
		s = string(v)
	case string:
		s = v
	default:
		return ""
	}
	t, err := time.ParseInLocation(mysqlDateTime, s, time.UTC)
	if err != nil {
		return s
	}
	return t.Format(time.RFC3339)
}

func sqlNullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// memoryLedger is used when no database is configured.
type memoryLedger struct {
	mu      sync.Mutex
	records []BackupRecord
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{}
}

func (l *memoryLedger) Record(_ context.Context, rec BackupRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append([]BackupRecord{rec}, l.records...)
	return nil
}

func (l *memoryLedger) List(_ context.Context) ([]BackupRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := make([]BackupRecord, len(l.records))
	copy(cp, l.records)
	return cp, nil
}
