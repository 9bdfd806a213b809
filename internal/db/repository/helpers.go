// Package repository implements the domain repository interfaces over the
// SQLite metastore with hand-written SQL.
package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"queryd/internal/domain"
)

// timeLayout is how timestamps are stored in the metastore. The format
// sorts lexicographically, so range scans on TEXT columns behave.
const timeLayout = "2006-01-02 15:04:05.999999999"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &domain.ConflictError{Message: "resource already exists"}
	}
	return err
}

func marshalDef(def *domain.QueryDef) (string, error) {
	if def == nil {
		return "", nil
	}
	raw, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("marshal query definition: %w", err)
	}
	return string(raw), nil
}

func unmarshalDef(raw string) (*domain.QueryDef, error) {
	if raw == "" {
		return nil, nil
	}
	var def domain.QueryDef
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return nil, fmt.Errorf("unmarshal query definition: %w", err)
	}
	return &def, nil
}
