package service

import (
	"context"
)

// Chat roles understood by the gateway
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one entry of a completion request
type ChatMessage struct {
	Role    string
	Content string
}

// Gateway turns an ordered message list into one raw text completion.
// Implementations report every transport or status failure wrapped in
// ErrGatewayUnavailable and never retry.
type Gateway interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
}

// ModelLister is implemented by gateways that can enumerate their models
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// Ensure OpenRouterGateway implements both
var (
	_ Gateway     = (*OpenRouterGateway)(nil)
	_ ModelLister = (*OpenRouterGateway)(nil)
)
