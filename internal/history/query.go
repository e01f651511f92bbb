package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/iot-dashboard/agent/internal/models"
)

// ReadingQuery selects a page of the sensor log. Column narrows the keyword
// match to one column; empty or "all" searches every channel.
type ReadingQuery struct {
	Column    string
	Keyword   string
	Page      int
	Size      int
	SortBy    string
	Direction string
}

// ActionQuery selects a page of the action log. Device and Status filter
// exactly; "all" or empty disables the filter.
type ActionQuery struct {
	Device    string
	Status    string
	Keyword   string
	Page      int
	Size      int
	SortBy    string
	Direction string
}

// readingColumns maps accepted sort/search names to real columns. The table
// widget sends "id" by default; rows are identified by UUID so the insert
// timestamp is the meaningful equivalent.
var readingColumns = map[string]string{
	"id":          "ts",
	"time":        "ts",
	"temperature": "temperature",
	"humidity":    "humidity",
	"light":       "light",
	"cb1":         "cb1",
	"cb2":         "cb2",
	"cb3":         "cb3",
}

var actionColumns = map[string]string{
	"id":     "ts",
	"time":   "ts",
	"device": "device",
	"status": "status",
}

func (l *Log) clampPaging(page, size int) (int, int) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = l.defaultPageSize
	}
	if size > l.maxPageSize {
		size = l.maxPageSize
	}
	return page, size
}

func orderClause(columns map[string]string, sortBy, direction string) string {
	col, ok := columns[strings.ToLower(sortBy)]
	if !ok {
		col = "ts"
	}
	dir := "ASC"
	if strings.EqualFold(direction, "desc") {
		dir = "DESC"
	}
	return fmt.Sprintf("ORDER BY %s %s", col, dir)
}

// SearchReadings returns one page of the sensor log.
func (l *Log) SearchReadings(ctx context.Context, q ReadingQuery) (models.Page[models.SensorReading], error) {
	page, size := l.clampPaging(q.Page, q.Size)

	var where []string
	var args []interface{}
	if q.Keyword != "" {
		pattern := "%" + q.Keyword + "%"
		col, ok := readingColumns[strings.ToLower(q.Column)]
		if ok && !strings.EqualFold(q.Column, "all") && !strings.EqualFold(q.Column, "id") {
			searchCol := col
			if searchCol == "ts" {
				searchCol = "time"
			}
			where = append(where, fmt.Sprintf("CAST(%s AS VARCHAR) LIKE ?", searchCol))
			args = append(args, pattern)
		} else {
			where = append(where,
				`(time LIKE ? OR CAST(temperature AS VARCHAR) LIKE ? OR CAST(humidity AS VARCHAR) LIKE ?
				  OR CAST(light AS VARCHAR) LIKE ? OR CAST(cb1 AS VARCHAR) LIKE ?
				  OR CAST(cb2 AS VARCHAR) LIKE ? OR CAST(cb3 AS VARCHAR) LIKE ?)`)
			for i := 0; i < 7; i++ {
				args = append(args, pattern)
			}
		}
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM sensor_readings %s", whereClause)
	if err := l.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return models.Page[models.SensorReading]{}, fmt.Errorf("counting sensor readings: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, time, temperature, humidity, light, cb1, cb2, cb3
		 FROM sensor_readings %s %s LIMIT ? OFFSET ?`,
		whereClause, orderClause(readingColumns, q.SortBy, q.Direction))
	rows, err := l.db.QueryContext(ctx, query, append(args, size, page*size)...)
	if err != nil {
		return models.Page[models.SensorReading]{}, fmt.Errorf("querying sensor readings: %w", err)
	}
	defer rows.Close()

	var content []models.SensorReading
	for rows.Next() {
		var r models.SensorReading
		if err := rows.Scan(&r.ID, &r.Time, &r.Temperature, &r.Humidity, &r.Light, &r.CB1, &r.CB2, &r.CB3); err != nil {
			return models.Page[models.SensorReading]{}, fmt.Errorf("scanning sensor reading: %w", err)
		}
		content = append(content, r)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.SensorReading]{}, fmt.Errorf("reading sensor rows: %w", err)
	}

	return models.NewPage(content, page, size, total), nil
}

// SearchActions returns one page of the action log.
func (l *Log) SearchActions(ctx context.Context, q ActionQuery) (models.Page[models.ActionRecord], error) {
	page, size := l.clampPaging(q.Page, q.Size)

	var where []string
	var args []interface{}
	if q.Device != "" && !strings.EqualFold(q.Device, "all") {
		where = append(where, "device = ?")
		args = append(args, q.Device)
	}
	if q.Status != "" && !strings.EqualFold(q.Status, "all") {
		where = append(where, "status = ?")
		args = append(args, strings.ToUpper(q.Status))
	}
	if q.Keyword != "" {
		pattern := "%" + q.Keyword + "%"
		where = append(where, "(device LIKE ? OR status LIKE ? OR time LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM action_history %s", whereClause)
	if err := l.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return models.Page[models.ActionRecord]{}, fmt.Errorf("counting actions: %w", err)
	}

	query := fmt.Sprintf(
		`SELECT id, device, status, time FROM action_history %s %s LIMIT ? OFFSET ?`,
		whereClause, orderClause(actionColumns, q.SortBy, q.Direction))
	rows, err := l.db.QueryContext(ctx, query, append(args, size, page*size)...)
	if err != nil {
		return models.Page[models.ActionRecord]{}, fmt.Errorf("querying actions: %w", err)
	}
	defer rows.Close()

	var content []models.ActionRecord
	for rows.Next() {
		var a models.ActionRecord
		var status string
		if err := rows.Scan(&a.ID, &a.Device, &status, &a.Time); err != nil {
			return models.Page[models.ActionRecord]{}, fmt.Errorf("scanning action: %w", err)
		}
		a.Status = models.Status(status)
		content = append(content, a)
	}
	if err := rows.Err(); err != nil {
		return models.Page[models.ActionRecord]{}, fmt.Errorf("reading action rows: %w", err)
	}

	return models.NewPage(content, page, size, total), nil
}
