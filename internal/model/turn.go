package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TurnRecord is one resolved conversation turn as stored in the turn log
type TurnRecord struct {
	ID             int64       `json:"id" db:"id"`
	SessionID      string      `json:"session_id" db:"session_id"`
	Prompt         string      `json:"prompt" db:"prompt"`
	Message        *string     `json:"message,omitempty" db:"message"`
	FastPath       bool        `json:"fast_path" db:"fast_path"`
	FiltersBefore  FiltersJSON `json:"filters_before" db:"filters_before"`
	FiltersAfter   FiltersJSON `json:"filters_after" db:"filters_after"`
	Keywords       JSONArray   `json:"keywords" db:"keywords"`
	ResponseTimeMs int         `json:"response_time_ms" db:"response_time_ms"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
}

// FiltersJSON stores a FilterState in a JSONB column
type FiltersJSON FilterState

// Value implements driver.Valuer interface
func (f FiltersJSON) Value() (driver.Value, error) {
	return json.Marshal(FilterState(f))
}

// Scan implements sql.Scanner interface
func (f *FiltersJSON) Scan(value interface{}) error {
	if value == nil {
		*f = FiltersJSON{}
		return nil
	}
	var state FilterState
	if err := json.Unmarshal(rawBytes(value), &state); err != nil {
		return fmt.Errorf("scan filters: %w", err)
	}
	*f = FiltersJSON(state)
	return nil
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	return json.Unmarshal(rawBytes(value), j)
}

func rawBytes(value interface{}) []byte {
	if b, ok := value.([]byte); ok {
		return b
	}
	if s, ok := value.(string); ok {
		return []byte(s)
	}
	return nil
}
