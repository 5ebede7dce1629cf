package chat_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/janhq/sense-api/internal/domain/capability"
	"github.com/janhq/sense-api/internal/domain/chat"
	"github.com/janhq/sense-api/internal/domain/metered"
	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/infrastructure/store"
	"github.com/janhq/sense-api/internal/utils/platformerrors"
)

type localChat struct {
	calls int
	err   error
}

func (l *localChat) Name() string { return capability.LocalProvider }

func (l *localChat) Execute(_ context.Context, req chat.Request) (chat.Response, error) {
	l.calls++
	return chat.Response{Text: "echo: " + req.Message}, l.err
}

func newService(t *testing.T, adapter *localChat) (chat.Service, usage.Service) {
	t.Helper()
	memory := store.NewMemoryStore(zerolog.Nop())
	accounts := usage.NewService(memory, zerolog.Nop())
	meter := usage.NewMeter(memory, usage.DefaultQuotaTable(), zerolog.Nop())
	orchestrator := capability.NewOrchestrator(capability.Chat, capability.NewSelector(nil, nil),
		[]chat.Adapter{adapter}, capability.Options{}, zerolog.Nop())
	return chat.NewService(orchestrator, metered.NewGate(accounts, meter, time.Second), zerolog.Nop()), accounts
}

func TestRespond_BillsOneCall(t *testing.T) {
	svc, accounts := newService(t, &localChat{})

	reply, err := svc.Respond(context.Background(), "user-1", chat.Request{Message: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "echo: hello", reply.Payload.Text)
	assert.Equal(t, capability.LocalProvider, reply.ServingProvider)
	assert.True(t, reply.Degraded)
	assert.Equal(t, "calls", reply.Usage.Unit)
	assert.Equal(t, "1", reply.Usage.AmountConsumed.String())

	principal, err := accounts.ResolvePrincipal(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "1", principal.Usage.APICallsUsed.String())
}

func TestRespond_InvalidRequestNeverReachesProviders(t *testing.T) {
	adapter := &localChat{}
	svc, _ := newService(t, adapter)

	tests := []struct {
		name string
		req  chat.Request
	}{
		{name: "empty message", req: chat.Request{Message: "   "}},
		{name: "unknown role", req: chat.Request{Message: "hi", History: []chat.Message{{Role: "tool", Content: "x"}}}},
		{name: "temperature out of range", req: chat.Request{Message: "hi", Options: chat.Options{Temperature: ptr(2.5)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Respond(context.Background(), "user-1", tt.req)
			assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeValidation))
		})
	}
	assert.Zero(t, adapter.calls)
}

func TestRespond_ExhaustedIsNotBilled(t *testing.T) {
	svc, accounts := newService(t, &localChat{err: capability.TransientError(capability.LocalProvider, errors.New("down"))})

	_, err := svc.Respond(context.Background(), "user-1", chat.Request{Message: "hello"})
	assert.True(t, platformerrors.IsErrorType(err, platformerrors.ErrorTypeProvidersExhausted))

	principal, err := accounts.ResolvePrincipal(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, principal.Usage.APICallsUsed.IsZero())
}

func TestRecentHistory(t *testing.T) {
	history := []chat.Message{{Content: "1"}, {Content: "2"}, {Content: "3"}}
	assert.Equal(t, history, chat.RecentHistory(history, 5))
	assert.Equal(t, history[1:], chat.RecentHistory(history, 2))
}

func ptr[T any](v T) *T { return &v }

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  chat.Request
		want string
	}{
		{name: "blank message", req: chat.Request{Message: " \n\t"}, want: "message is required"},
		{name: "too long", req: chat.Request{Message: strings.Repeat("é", 4001)}, want: "message is too long (max 4000 characters)"},
		{
			name: "unknown role",
			req:  chat.Request{Message: "hi", History: []chat.Message{{Role: "user"}, {Role: "tool"}}},
			want: `history[1].role: unsupported value "tool"`,
		},
		{name: "temperature", req: chat.Request{Message: "hi", Options: chat.Options{Temperature: ptr(-0.1)}}, want: "options.temperature must be at least 0"},
		{name: "max tokens", req: chat.Request{Message: "hi", Options: chat.Options{MaxTokens: ptr(9000)}}, want: "options.maxTokens must be at most 8192"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			require.ErrorIs(t, err, capability.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	// Length counts characters, not bytes.
	assert.NoError(t, chat.Request{Message: strings.Repeat("é", 4000)}.Validate())
	assert.NoError(t, chat.Request{Message: "hi", Options: chat.Options{Temperature: ptr(2.0)}}.Validate())
}
