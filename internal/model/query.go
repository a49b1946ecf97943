package model

import (
	"encoding/json"
	"time"
)

// ParsePromptRequest is the body of POST /api/v1/parse-prompt.
// CurrentFilters stays raw so the filter validator can normalize it.
type ParsePromptRequest struct {
	Prompt         string             `json:"prompt" binding:"required"`
	CurrentFilters json.RawMessage    `json:"currentFilters,omitempty"`
	History        []ConversationTurn `json:"history,omitempty" binding:"omitempty,dive"`
}

// ParsePromptResponse is returned for a resolved prompt
type ParsePromptResponse struct {
	Filters  FilterState `json:"filters"`
	Message  string      `json:"message,omitempty"`
	FastPath bool        `json:"fast_path,omitempty"`
}

// StartSessionRequest optionally seeds a new session
type StartSessionRequest struct {
	Filters json.RawMessage `json:"filters,omitempty"`
}

// SessionMessageRequest is the body of POST /api/v1/sessions/:id/messages
type SessionMessageRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// Session is the per-conversation state kept between turns
type Session struct {
	ID        string             `json:"session_id"`
	Filters   FilterState        `json:"filters"`
	History   []ConversationTurn `json:"history"`
	Version   int64              `json:"version"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// SessionMessageResponse is returned after a session turn
type SessionMessageResponse struct {
	SessionID string             `json:"session_id"`
	Filters   FilterState        `json:"filters"`
	Message   string             `json:"message,omitempty"`
	FastPath  bool               `json:"fast_path,omitempty"`
	History   []ConversationTurn `json:"history"`
}

// ModelsResponse lists the language models the gateway can reach
type ModelsResponse struct {
	Models []string `json:"models"`
}

// ErrorResponse is the error envelope of every endpoint
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
