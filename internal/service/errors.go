package service

import (
	"errors"
)

var (
	// ErrMalformedResponse means the gateway answered without a parseable JSON object
	ErrMalformedResponse = errors.New("malformed model response")
	// ErrInvalidResponseShape means the JSON parsed but has no filters object
	ErrInvalidResponseShape = errors.New("invalid model response shape")
	// ErrGatewayUnavailable covers transport, auth and non-2xx failures of the gateway
	ErrGatewayUnavailable = errors.New("language model gateway unavailable")
)

// PromptParseError is the single failure surfaced by Resolve for the model path
type PromptParseError struct {
	Cause error
}

func (e *PromptParseError) Error() string {
	return "failed to parse prompt: " + e.Cause.Error()
}

func (e *PromptParseError) Unwrap() error {
	return e.Cause
}
