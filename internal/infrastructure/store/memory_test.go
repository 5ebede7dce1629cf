package store_test

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/janhq/sense-api/internal/domain/usage"
	"github.com/janhq/sense-api/internal/infrastructure/store"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) usage.Store {
		return store.NewMemoryStore(zerolog.Nop())
	})
}
