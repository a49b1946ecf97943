package service

import (
	"context"
	"errors"
	"fmt"

	"compass/internal/keywords"
	"compass/internal/metrics"
	"compass/internal/model"

	"go.uber.org/zap"
)

// Resolution is the outcome of one conversational turn
type Resolution struct {
	Filters  model.FilterState
	Message  string
	FastPath bool
}

// Resolver merges a new utterance onto the current filter state.
// It holds no per-conversation state; concurrent calls are independent.
type Resolver struct {
	gateway         Gateway
	whitelist       *keywords.Whitelist
	defaultLocation string
	logger          *zap.Logger
}

// NewResolver creates a resolver. An empty defaultLocation falls back to model.DefaultLocation.
func NewResolver(gateway Gateway, whitelist *keywords.Whitelist, defaultLocation string, logger *zap.Logger) *Resolver {
	if defaultLocation == "" {
		defaultLocation = model.DefaultLocation
	}
	if whitelist == nil {
		whitelist = keywords.Default()
	}
	return &Resolver{
		gateway:         gateway,
		whitelist:       whitelist,
		defaultLocation: defaultLocation,
		logger:          logger,
	}
}

// Resolve produces the next filter state for utterance. Reset commands are
// handled locally and never fail; everything else goes through the gateway and
// fails with *PromptParseError.
func (r *Resolver) Resolve(ctx context.Context, utterance string, current model.FilterState, history []model.ConversationTurn) (*Resolution, error) {
	if res, ok := localCommand(utterance, current, r.defaultLocation); ok {
		r.logger.Info("resolved local command", zap.String("location", res.Filters.Location))
		metrics.Resolutions.WithLabelValues(metrics.PathFast, metrics.OutcomeOK).Inc()
		return &res, nil
	}

	res, err := r.resolveWithModel(ctx, utterance, current, history)
	if err != nil {
		metrics.Resolutions.WithLabelValues(metrics.PathModel, metrics.OutcomeError).Inc()
		r.logger.Warn("prompt resolution failed", zap.Error(err))
		return nil, &PromptParseError{Cause: err}
	}
	metrics.Resolutions.WithLabelValues(metrics.PathModel, metrics.OutcomeOK).Inc()
	return res, nil
}

func (r *Resolver) resolveWithModel(ctx context.Context, utterance string, current model.FilterState, history []model.ConversationTurn) (*Resolution, error) {
	if r.gateway == nil {
		return nil, fmt.Errorf("%w: no gateway configured", ErrGatewayUnavailable)
	}

	systemPrompt := buildSystemPrompt(current, r.whitelist.AllTokens(), r.defaultLocation)
	messages := buildMessages(systemPrompt, history, utterance)

	content, err := r.gateway.Complete(ctx, messages)
	if err != nil {
		if !errors.Is(err, ErrGatewayUnavailable) {
			err = fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
		}
		return nil, err
	}

	answer, err := parseModelAnswer(content)
	if err != nil {
		return nil, err
	}
	if len(answer.Ignored) > 0 {
		r.logger.Debug("ignored unusable patch values", zap.Strings("fields", answer.Ignored))
	}

	filters := r.merge(current, answer.Patch)

	r.logger.Info("resolved prompt",
		zap.Int("history_turns", len(history)),
		zap.Int("patched_fields", len(answer.Patch.Fields)),
		zap.Bool("keywords_patched", answer.Patch.KeywordsSet),
		zap.String("location", filters.Location),
	)

	return &Resolution{Filters: filters, Message: answer.Message}, nil
}

// merge applies the model patch onto current. Untouched fields carry over,
// keywords are whitelisted, and location always ends up non-empty.
func (r *Resolver) merge(current model.FilterState, patch *model.FilterPatch) model.FilterState {
	// location is never cleared by the model, an empty value keeps the prior one
	if patch.Op(model.FieldLocation).Op == model.PatchClear {
		delete(patch.Fields, model.FieldLocation)
	}

	if patch.KeywordsSet {
		kept, dropped := r.whitelist.Filter(patch.Keywords)
		if dropped > 0 {
			metrics.DroppedKeywords.Add(float64(dropped))
			r.logger.Debug("dropped keywords outside whitelist", zap.Int("dropped", dropped))
		}
		patch.Keywords = kept
	}

	merged := patch.Apply(current)
	if merged.Location == "" {
		merged.Location = r.defaultLocation
	}
	return merged
}
