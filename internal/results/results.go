// Package results holds materialized query output and serves page windows
// over it.
package results

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"queryd/internal/domain"
)

// PagedResults is an immutable, fully materialized result table. Once built
// it is safe for concurrent readers; page windows share the backing rows.
type PagedResults struct {
	columns   []string
	rows      [][]interface{}
	sourceSQL string
	createdAt time.Time
}

// Page is one window of a result table.
type Page struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
	Offset  int             `json:"offset"`
	Total   int             `json:"total"`
	HasMore bool            `json:"has_more"`
}

// Materialize drains rows into a PagedResults. Byte-slice cells are
// converted to strings so pages serialize cleanly as JSON. The cursor is
// left for the caller to close.
func Materialize(rows *sql.Rows, sourceSQL string) (*PagedResults, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var resultRows [][]interface{}
	for rows.Next() {
		vals := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make([]interface{}, len(vals))
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				row[i] = string(b)
			} else {
				row[i] = v
			}
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &PagedResults{
		columns:   cols,
		rows:      resultRows,
		sourceSQL: sourceSQL,
		createdAt: time.Now(),
	}, nil
}

// FromRows builds a PagedResults from already-materialized data.
func FromRows(columns []string, rows [][]interface{}, sourceSQL string) *PagedResults {
	return &PagedResults{
		columns:   columns,
		rows:      rows,
		sourceSQL: sourceSQL,
		createdAt: time.Now(),
	}
}

// Columns returns the column names.
func (p *PagedResults) Columns() []string { return p.columns }

// Size returns the total row count.
func (p *PagedResults) Size() int { return len(p.rows) }

// SourceSQL returns the SQL the table was produced from.
func (p *PagedResults) SourceSQL() string { return p.sourceSQL }

// CreatedAt returns when the table was materialized.
func (p *PagedResults) CreatedAt() time.Time { return p.createdAt }

// Window returns the page described by req, clamped to the table bounds.
func (p *PagedResults) Window(req domain.PageRequest) Page {
	offset := req.Start()
	limit := req.Limit()
	total := len(p.rows)

	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return Page{
		Columns: p.columns,
		Rows:    p.rows[offset:end],
		Offset:  offset,
		Total:   total,
		HasMore: end < total,
	}
}

// WriteCSV streams the whole table as CSV, header row first. NULL cells are
// rendered as the literal NULL.
func (p *PagedResults) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(p.columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range p.rows {
		record := make([]string, 0, len(p.rows[i]))
		for j := range p.rows[i] {
			record = append(record, cellString(p.rows[i][j]))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func cellString(value interface{}) string {
	if value == nil {
		return "NULL"
	}
	return fmt.Sprintf("%v", value)
}
