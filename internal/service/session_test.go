package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"compass/internal/model"
	"compass/internal/repository"
	"compass/internal/validation"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryTurnLog struct {
	mu    sync.Mutex
	turns []model.TurnRecord
	err   error
}

func (m *memoryTurnLog) LogTurn(_ context.Context, rec *model.TurnRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rec.ID = int64(len(m.turns) + 1)
	m.turns = append(m.turns, *rec)
	return nil
}

func (m *memoryTurnLog) SessionTurns(_ context.Context, sessionID string, limit int) ([]model.TurnRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.TurnRecord{}
	for _, t := range m.turns {
		if t.SessionID == sessionID && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func newTestSessionService(t *testing.T, gw Gateway, turnLog TurnLog) *SessionService {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	validator, err := validation.NewFilterValidator("", nil)
	require.NoError(t, err)

	store := repository.NewRedisSessionStore(client, time.Hour)
	return NewSessionService(store, turnLog, newTestResolver(gw), validator, zap.NewNop())
}

func TestSessionService_Conversation(t *testing.T) {
	gw := &fakeGateway{}
	turnLog := &memoryTurnLog{}
	svc := newTestSessionService(t, gw, turnLog)
	ctx := context.Background()

	sess, err := svc.Start(ctx, model.FilterState{Location: "La Jolla, CA", MinPrice: "500000"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, model.DefaultSort, sess.Filters.Sort)

	gw.reply = `{"filters":{"bedsMin":"4","keywords":["pool","bogusTag"]},"message":"Showing 4+ bedroom homes"}`
	resp, err := svc.Send(ctx, sess.ID, "4 bedrooms with a pool")
	require.NoError(t, err)
	assert.Equal(t, "La Jolla, CA", resp.Filters.Location)
	assert.Equal(t, "500000", resp.Filters.MinPrice)
	assert.Equal(t, "4", resp.Filters.BedsMin)
	assert.Equal(t, []string{"pool"}, resp.Filters.Keywords)
	assert.Equal(t, "Showing 4+ bedroom homes", resp.Message)
	require.Len(t, resp.History, 2)
	svc.Wait()

	gw.reply = `{"filters":{"minPrice":""},"message":"Removed the minimum price"}`
	_, err = svc.Send(ctx, sess.ID, "no minimum price")
	require.NoError(t, err)

	// history from earlier turns is forwarded to the gateway
	require.Len(t, gw.messages, 4)
	assert.Equal(t, "4 bedrooms with a pool", gw.messages[1].Content)
	assert.Equal(t, "Showing 4+ bedroom homes", gw.messages[2].Content)

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Filters.MinPrice)
	assert.Equal(t, "4", got.Filters.BedsMin)
	assert.Len(t, got.History, 4)

	svc.Wait()
	turns, err := svc.Turns(ctx, sess.ID, 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "500000", turns[1].FiltersBefore.MinPrice)
	assert.Equal(t, "", turns[1].FiltersAfter.MinPrice)
	require.NotNil(t, turns[0].Message)
	assert.Equal(t, "Showing 4+ bedroom homes", *turns[0].Message)
}

func TestSessionService_FastPath(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestSessionService(t, gw, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, model.FilterState{Location: "Capitola, CA", BedsMin: "2"})
	require.NoError(t, err)

	resp, err := svc.Send(ctx, sess.ID, "clear all filters except location")
	require.NoError(t, err)
	assert.True(t, resp.FastPath)
	assert.Equal(t, model.NewFilterState("Capitola, CA"), resp.Filters)
	assert.Zero(t, gw.calls)

	turns, err := svc.Turns(ctx, sess.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestSessionService_FailureKeepsState(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestSessionService(t, gw, &memoryTurnLog{})
	ctx := context.Background()

	sess, err := svc.Start(ctx, model.FilterState{Location: "Aptos, CA", MaxPrice: "2000000"})
	require.NoError(t, err)

	gw.reply = "I am not sure what you mean."
	_, err = svc.Send(ctx, sess.ID, "something vague")
	var perr *PromptParseError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, ErrMalformedResponse)

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "2000000", got.Filters.MaxPrice)
	assert.Empty(t, got.History)
}

func TestSessionService_RejectsInvalidModelValue(t *testing.T) {
	gw := &fakeGateway{reply: `{"filters":{"sort":"Cheapest"}}`}
	svc := newTestSessionService(t, gw, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, model.FilterState{})
	require.NoError(t, err)

	_, err = svc.Send(ctx, sess.ID, "cheapest first")
	var verr *validation.Error
	assert.True(t, errors.As(err, &verr), "got %v", err)
	assert.ErrorIs(t, err, ErrInvalidResponseShape)
}

func TestSessionService_UnknownSession(t *testing.T) {
	svc := newTestSessionService(t, &fakeGateway{}, &memoryTurnLog{})
	ctx := context.Background()

	_, err := svc.Send(ctx, "missing", "3 beds")
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)

	_, err = svc.Turns(ctx, "missing", 10)
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

// interleavingGateway runs during once before answering, standing in for a
// second turn stored while the model call is in flight.
type interleavingGateway struct {
	fakeGateway
	during func()
}

func (g *interleavingGateway) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if during := g.during; during != nil {
		g.during = nil
		during()
	}
	return g.fakeGateway.Complete(ctx, messages)
}

func TestSessionService_ConcurrentTurnConflict(t *testing.T) {
	gw := &interleavingGateway{fakeGateway: fakeGateway{reply: `{"filters":{"bedsMin":"4"}}`}}
	svc := newTestSessionService(t, gw, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, model.FilterState{Location: "Del Mar, CA", MaxPrice: "3000000"})
	require.NoError(t, err)

	gw.during = func() {
		_, err := svc.Send(ctx, sess.ID, "clear all filters except location")
		require.NoError(t, err)
	}
	_, err = svc.Send(ctx, sess.ID, "4 bedrooms")
	assert.ErrorIs(t, err, repository.ErrSessionConflict)
	assert.Equal(t, 1, gw.calls)

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.NewFilterState("Del Mar, CA"), got.Filters)
	assert.Equal(t, int64(1), got.Version)

	// a retry on the fresh state goes through
	_, err = svc.Send(ctx, sess.ID, "4 bedrooms")
	require.NoError(t, err)
	got, err = svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "4", got.Filters.BedsMin)
	assert.Equal(t, int64(2), got.Version)
}

func TestSessionService_HistoryCap(t *testing.T) {
	gw := &fakeGateway{}
	svc := newTestSessionService(t, gw, nil)
	ctx := context.Background()

	sess, err := svc.Start(ctx, model.FilterState{})
	require.NoError(t, err)

	for i := 0; i < maxHistoryTurns; i++ {
		gw.reply = fmt.Sprintf(`{"filters":{"sqftMin":"%d"},"message":"turn %d"}`, 1000+i, i)
		_, err := svc.Send(ctx, sess.ID, fmt.Sprintf("at least %d sqft", 1000+i))
		require.NoError(t, err)
	}

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.History, maxHistoryTurns)
	assert.Equal(t, fmt.Sprintf("turn %d", maxHistoryTurns-1), got.History[len(got.History)-1].Content)
	assert.Equal(t, fmt.Sprint(1000+maxHistoryTurns-1), got.Filters.SqftMin)
}

func TestSessionService_TurnLogFailureIsIgnored(t *testing.T) {
	gw := &fakeGateway{reply: `{"filters":{"bedsMin":"2"}}`}
	svc := newTestSessionService(t, gw, &memoryTurnLog{err: errors.New("db down")})
	ctx := context.Background()

	sess, err := svc.Start(ctx, model.FilterState{})
	require.NoError(t, err)

	resp, err := svc.Send(ctx, sess.ID, "2 beds")
	require.NoError(t, err)
	assert.Equal(t, "2", resp.Filters.BedsMin)
	svc.Wait()
}
