package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pulsegram/authd/internal/domain/repository"
)

func TestApplicationStoreCreateAndGet(t *testing.T) {
	s := NewApplicationStore()

	app := &repository.Application{
		ClientID:       "client-1",
		Name:           "Demo",
		RedirectURIs:   []string{"https://client.example/cb"},
		ApprovedScopes: []string{"read:profile"},
		Environment:    repository.AppEnvDevelopment,
		Status:         repository.AppStatusActive,
	}
	require.NoError(t, s.Create(context.Background(), app))
	assert.NotEmpty(t, app.ID)

	got, err := s.GetByClientID(context.Background(), "client-1")
	require.NoError(t, err)
	assert.Equal(t, app.ID, got.ID)

	// client_id duplicado
	err = s.Create(context.Background(), &repository.Application{ClientID: "client-1"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = s.GetByClientID(context.Background(), "nope")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
