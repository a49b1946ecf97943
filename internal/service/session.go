package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"compass/internal/model"
	"compass/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxHistoryTurns caps the history kept per session; older turns are dropped first
const maxHistoryTurns = 20

const turnLogTimeout = 5 * time.Second

// SessionStore persists conversation sessions
type SessionStore interface {
	Create(ctx context.Context, sess *model.Session) error
	Get(ctx context.Context, id string) (*model.Session, error)
	// Save replaces the session if it is still at sess.Version and bumps the
	// version; otherwise it fails with repository.ErrSessionConflict.
	Save(ctx context.Context, sess *model.Session) error
}

// TurnLog records resolved turns
type TurnLog interface {
	LogTurn(ctx context.Context, rec *model.TurnRecord) error
	SessionTurns(ctx context.Context, sessionID string, limit int) ([]model.TurnRecord, error)
}

// SessionService runs multi-turn conversations on top of the resolver, keeping
// the filter state of record and the turn history in a SessionStore.
type SessionService struct {
	store     SessionStore
	turnLog   TurnLog
	resolver  *Resolver
	validator *validation.FilterValidator
	logger    *zap.Logger

	pending sync.WaitGroup
}

// NewSessionService creates a session service. turnLog may be nil.
func NewSessionService(
	store SessionStore,
	turnLog TurnLog,
	resolver *Resolver,
	validator *validation.FilterValidator,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		store:     store,
		turnLog:   turnLog,
		resolver:  resolver,
		validator: validator,
		logger:    logger,
	}
}

// Start creates a session seeded with filters
func (s *SessionService) Start(ctx context.Context, filters model.FilterState) (*model.Session, error) {
	checked, err := s.validator.Check(filters)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &model.Session{
		ID:        uuid.NewString(),
		Filters:   checked,
		History:   []model.ConversationTurn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Info("session started", zap.String("session_id", sess.ID), zap.String("location", checked.Location))
	return sess, nil
}

// Get returns a session snapshot
func (s *SessionService) Get(ctx context.Context, id string) (*model.Session, error) {
	return s.store.Get(ctx, id)
}

// Turns returns the logged turns of a session
func (s *SessionService) Turns(ctx context.Context, id string, limit int) ([]model.TurnRecord, error) {
	if s.turnLog == nil {
		return []model.TurnRecord{}, nil
	}
	if _, err := s.store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.turnLog.SessionTurns(ctx, id, limit)
}

// Send resolves prompt against the session's filters and stores the result.
// A failed resolution leaves the session untouched. If another turn on the
// same session was stored while this one resolved, the save fails with
// repository.ErrSessionConflict.
func (s *SessionService) Send(ctx context.Context, id, prompt string) (*model.SessionMessageResponse, error) {
	start := time.Now()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	before := sess.Filters.Clone()

	res, err := s.resolver.Resolve(ctx, prompt, sess.Filters, sess.History)
	if err != nil {
		return nil, err
	}
	checked, err := s.validator.Check(res.Filters)
	if err != nil {
		return nil, fmt.Errorf("%w: resolved filters rejected: %w", ErrInvalidResponseShape, err)
	}
	res.Filters = checked

	sess.Filters = checked
	sess.History = append(sess.History, model.ConversationTurn{Role: model.RoleUser, Content: prompt})
	if res.Message != "" {
		sess.History = append(sess.History, model.ConversationTurn{Role: model.RoleAssistant, Content: res.Message})
	}
	if over := len(sess.History) - maxHistoryTurns; over > 0 {
		sess.History = sess.History[over:]
	}
	sess.UpdatedAt = time.Now().UTC()

	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.logTurn(sess.ID, prompt, before, res, time.Since(start))

	return &model.SessionMessageResponse{
		SessionID: sess.ID,
		Filters:   sess.Filters,
		Message:   res.Message,
		FastPath:  res.FastPath,
		History:   sess.History,
	}, nil
}

// Wait blocks until pending turn log writes finish
func (s *SessionService) Wait() {
	s.pending.Wait()
}

func (s *SessionService) logTurn(sessionID, prompt string, before model.FilterState, res *Resolution, took time.Duration) {
	if s.turnLog == nil {
		return
	}

	after := res.Filters.Clone()
	rec := &model.TurnRecord{
		SessionID:      sessionID,
		Prompt:         prompt,
		FastPath:       res.FastPath,
		FiltersBefore:  model.FiltersJSON(before),
		FiltersAfter:   model.FiltersJSON(after),
		Keywords:       model.JSONArray(after.Keywords),
		ResponseTimeMs: int(took.Milliseconds()),
	}
	if res.Message != "" {
		msg := res.Message
		rec.Message = &msg
	}

	// non-blocking, best effort
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), turnLogTimeout)
		defer cancel()
		if err := s.turnLog.LogTurn(ctx, rec); err != nil {
			s.logger.Warn("failed to log turn", zap.String("session_id", sessionID), zap.Error(err))
		}
	}()
}
