package service

import (
	"context"
	"errors"
	"testing"

	"compass/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeGateway struct {
	reply    string
	err      error
	calls    int
	messages []ChatMessage
}

func (f *fakeGateway) Complete(_ context.Context, messages []ChatMessage) (string, error) {
	f.calls++
	f.messages = messages
	return f.reply, f.err
}

func newTestResolver(gw Gateway) *Resolver {
	return NewResolver(gw, nil, "", zap.NewNop())
}

func TestResolve_ClearAllFilters(t *testing.T) {
	gw := &fakeGateway{}
	r := newTestResolver(gw)

	current := model.FilterState{
		Location: "La Jolla, CA",
		MinPrice: "500000",
		BedsMin:  "3",
		Sort:     "Newest",
		Keywords: []string{"pool"},
	}

	for _, utterance := range []string{"clear all filters", "Please CLEAR FILTERS now", "reset filters"} {
		res, err := r.Resolve(context.Background(), utterance, current, nil)
		require.NoError(t, err, utterance)
		assert.True(t, res.FastPath)
		assert.Equal(t, model.NewFilterState(model.DefaultLocation), res.Filters)
		assert.Equal(t, []string{}, res.Filters.Keywords)
		assert.Contains(t, res.Message, "cleared all filters")
	}
	assert.Zero(t, gw.calls, "fast path must not call the gateway")
}

func TestResolve_ClearExceptLocation(t *testing.T) {
	r := newTestResolver(&fakeGateway{})

	current := model.FilterState{Location: "La Jolla, CA", MaxPrice: "2000000", Keywords: []string{"view"}}
	res, err := r.Resolve(context.Background(), "clear all filters except location", current, nil)
	require.NoError(t, err)
	assert.Equal(t, model.NewFilterState("La Jolla, CA"), res.Filters)
	assert.Contains(t, res.Message, "except for the location")
	assert.Contains(t, res.Message, "La Jolla, CA")

	res, err = r.Resolve(context.Background(), "clear filters except location", model.FilterState{}, nil)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultLocation, res.Filters.Location)
}

func TestResolve_LocationPreserved(t *testing.T) {
	tests := []struct {
		name     string
		current  string
		reply    string
		expected string
	}{
		{name: "patch omits location", current: "San Diego, CA", reply: `{"filters":{"bedsMin":"2"}}`, expected: "San Diego, CA"},
		{name: "patch clears location", current: "San Diego, CA", reply: `{"filters":{"location":""}}`, expected: "San Diego, CA"},
		{name: "patch nulls location", current: "San Diego, CA", reply: `{"filters":{"location":null}}`, expected: "San Diego, CA"},
		{name: "empty current", current: "", reply: `{"filters":{}}`, expected: model.DefaultLocation},
		{name: "new place", current: "San Diego, CA", reply: `{"filters":{"location":"Del Mar, CA"}}`, expected: "Del Mar, CA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(&fakeGateway{reply: tt.reply})
			res, err := r.Resolve(context.Background(), "something", model.FilterState{Location: tt.current}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.Filters.Location)
			assert.False(t, res.FastPath)
		})
	}
}

func TestResolve_MergeScenario(t *testing.T) {
	gw := &fakeGateway{reply: `{"filters":{"bedsMin":"4"},"message":"Showing 4+ bedroom homes"}`}
	r := newTestResolver(gw)

	current := model.FilterState{Location: "La Jolla, CA", MinPrice: "500000"}
	res, err := r.Resolve(context.Background(), "at least 4 bedrooms", current, nil)
	require.NoError(t, err)

	assert.Equal(t, "La Jolla, CA", res.Filters.Location)
	assert.Equal(t, "500000", res.Filters.MinPrice)
	assert.Equal(t, "4", res.Filters.BedsMin)
	assert.Equal(t, "", res.Filters.MaxPrice)
	assert.Equal(t, "Showing 4+ bedroom homes", res.Message)
	assert.Equal(t, "500000", current.MinPrice, "input state must not be mutated")
}

func TestResolve_ExplicitClear(t *testing.T) {
	r := newTestResolver(&fakeGateway{reply: `{"filters":{"maxPrice":""},"message":"Removed the price cap"}`})

	current := model.FilterState{Location: "San Diego, CA", MinPrice: "400000", MaxPrice: "2000000"}
	res, err := r.Resolve(context.Background(), "remove the price cap", current, nil)
	require.NoError(t, err)
	assert.Equal(t, "", res.Filters.MaxPrice)
	assert.Equal(t, "400000", res.Filters.MinPrice)
	assert.Equal(t, "2000000", current.MaxPrice)
}

func TestResolve_Keywords(t *testing.T) {
	current := model.FilterState{Location: "San Diego, CA", Keywords: []string{"pool", "view"}}

	t.Run("preserved when absent", func(t *testing.T) {
		r := newTestResolver(&fakeGateway{reply: `{"filters":{"bedsMin":"3"}}`})
		res, err := r.Resolve(context.Background(), "3 beds", current, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"pool", "view"}, res.Filters.Keywords)
	})

	t.Run("preserved when null", func(t *testing.T) {
		r := newTestResolver(&fakeGateway{reply: `{"filters":{"keywords":null}}`})
		res, err := r.Resolve(context.Background(), "anything", current, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"pool", "view"}, res.Filters.Keywords)
	})

	t.Run("replaced and filtered", func(t *testing.T) {
		r := newTestResolver(&fakeGateway{reply: `{"filters":{"keywords":["pool","bogusTag","waterfront"]}}`})
		res, err := r.Resolve(context.Background(), "pool on the water", current, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"pool", "waterfront"}, res.Filters.Keywords)
	})

	t.Run("phrases canonicalized", func(t *testing.T) {
		r := newTestResolver(&fakeGateway{reply: `{"filters":{"keywords":"Ocean View, pool, pool"}}`})
		res, err := r.Resolve(context.Background(), "ocean view and a pool", current, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"ocean view", "pool"}, res.Filters.Keywords)
	})

	t.Run("empty list clears", func(t *testing.T) {
		r := newTestResolver(&fakeGateway{reply: `{"filters":{"keywords":[]}}`})
		res, err := r.Resolve(context.Background(), "no special features", current, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{}, res.Filters.Keywords)
	})
}

func TestResolve_Failures(t *testing.T) {
	tests := []struct {
		name  string
		gw    Gateway
		cause error
	}{
		{name: "non JSON text", gw: &fakeGateway{reply: "Sorry, I can't help with that."}, cause: ErrMalformedResponse},
		{name: "broken JSON", gw: &fakeGateway{reply: `{"filters": {"bedsMin": "3",}`}, cause: ErrMalformedResponse},
		{name: "missing filters", gw: &fakeGateway{reply: `{"message":"hi"}`}, cause: ErrInvalidResponseShape},
		{name: "filters not an object", gw: &fakeGateway{reply: `{"filters":["pool"]}`}, cause: ErrInvalidResponseShape},
		{name: "gateway error", gw: &fakeGateway{err: errors.New("connection refused")}, cause: ErrGatewayUnavailable},
		{name: "no gateway", gw: nil, cause: ErrGatewayUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(tt.gw)
			res, err := r.Resolve(context.Background(), "3 bed homes", model.NewFilterState("San Diego, CA"), nil)
			assert.Nil(t, res)

			var perr *PromptParseError
			require.True(t, errors.As(err, &perr), "got %v", err)
			assert.ErrorIs(t, err, tt.cause)
			assert.Contains(t, err.Error(), "failed to parse prompt")
		})
	}
}

func TestResolve_MessageOrder(t *testing.T) {
	gw := &fakeGateway{reply: "```json\n{\"filters\":{\"maxPrice\":\"$1.2M\"},\"explanation\":\"Capped at $1.2M\"}\n```"}
	r := newTestResolver(gw)

	history := []model.ConversationTurn{
		{Role: model.RoleUser, Content: "homes in San Diego"},
		{Role: model.RoleAssistant, Content: "Searching San Diego"},
	}
	current := model.FilterState{Location: "San Diego, CA", BedsMin: "3"}

	res, err := r.Resolve(context.Background(), "under 1.2 million", current, history)
	require.NoError(t, err)
	assert.Equal(t, "1200000", res.Filters.MaxPrice)
	assert.Equal(t, "Capped at $1.2M", res.Message)

	require.Len(t, gw.messages, 4)
	assert.Equal(t, RoleSystem, gw.messages[0].Role)
	assert.Contains(t, gw.messages[0].Content, "Current active filters")
	assert.Contains(t, gw.messages[0].Content, `"bedsMin": "3"`)
	assert.Equal(t, history[0].Content, gw.messages[1].Content)
	assert.Equal(t, RoleAssistant, gw.messages[2].Role)
	assert.Equal(t, ChatMessage{Role: RoleUser, Content: "under 1.2 million"}, gw.messages[3])
}
