// Package history keeps a local DuckDB log of every appended telemetry sample
// and every confirmed device action, and serves the paginated searches behind
// the dashboard's table views.
package history

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/iot-dashboard/agent/internal/models"
)

// Log is a DuckDB-backed append-only store. Writes are serialized; the agent
// appends at most one sensor row per poll cycle so batching is unnecessary.
type Log struct {
	db     *sql.DB
	dbPath string
	logger *zap.Logger

	defaultPageSize int
	maxPageSize     int

	writeMu sync.Mutex
}

// Open creates or reopens the log database at dbPath.
func Open(dbPath string, defaultPageSize, maxPageSize int, logger *zap.Logger) (*Log, error) {
	connector, err := duckdb.NewConnector(dbPath, nil)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	db := sql.OpenDB(connector)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS sensor_readings (
			id          VARCHAR PRIMARY KEY,
			ts          BIGINT NOT NULL,
			time        VARCHAR NOT NULL,
			temperature DOUBLE NOT NULL,
			humidity    DOUBLE NOT NULL,
			light       DOUBLE NOT NULL,
			cb1         DOUBLE NOT NULL,
			cb2         DOUBLE NOT NULL,
			cb3         DOUBLE NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS action_history (
			id     VARCHAR PRIMARY KEY,
			ts     BIGINT NOT NULL,
			time   VARCHAR NOT NULL,
			device VARCHAR NOT NULL,
			status VARCHAR NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_ts ON sensor_readings(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_actions_ts ON action_history(ts)`,
	}
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating history schema: %w", err)
		}
	}

	return &Log{
		db:              db,
		dbPath:          dbPath,
		logger:          logger,
		defaultPageSize: defaultPageSize,
		maxPageSize:     maxPageSize,
	}, nil
}

// RecordSample appends one telemetry sample. Failures are logged, not
// surfaced: the history log is best-effort and must never disturb the sync
// engine.
func (l *Log) RecordSample(s models.TelemetrySample) {
	ts := time.Now()
	if parsed, ok := s.Timestamp(); ok {
		ts = parsed
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_, err := l.db.Exec(
		`INSERT INTO sensor_readings (id, ts, time, temperature, humidity, light, cb1, cb2, cb3)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), ts.UnixMilli(), s.Time,
		s.Temperature, s.Humidity, s.Light, s.CB1, s.CB2, s.CB3,
	)
	if err != nil {
		l.logger.Error("sensor log insert failed", zap.Error(err))
	}
}

// RecordAction appends one confirmed device action. Implements
// device.ActionRecorder.
func (l *Log) RecordAction(deviceID string, status models.Status, when time.Time) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	_, err := l.db.Exec(
		`INSERT INTO action_history (id, ts, time, device, status) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), when.UnixMilli(), when.Format(time.RFC3339), deviceID, string(status),
	)
	if err != nil {
		l.logger.Error("action log insert failed", zap.Error(err))
	}
}

// Close closes the underlying database.
func (l *Log) Close() error {
	return l.db.Close()
}
