package firestore

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/vlogadmin/internal/apperr"
	"github.com/vbonduro/vlogadmin/internal/domain"
)

// These tests need the Firestore emulator:
//
//	gcloud emulators firestore start --host-port=localhost:8088
//	FIRESTORE_EMULATOR_HOST=localhost:8088 go test ./internal/store/firestore
func newEmulatorCollection(t *testing.T) *Collection[domain.Vlog, *domain.Vlog] {
	t.Helper()
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}
	client, err := NewClient(context.Background(), "vlogadmin-test", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	// a fresh collection per test keeps runs independent
	return NewCollection[domain.Vlog](client, "vlogs-"+uuid.NewString())
}

func TestFirestoreRoundTrip(t *testing.T) {
	vlogs := newEmulatorCollection(t)
	ctx := context.Background()

	v := &domain.Vlog{Title: "Sigiriya", URL: "https://youtu.be/x", Category: "hiking"}
	id, err := vlogs.Create(ctx, v)
	require.NoError(t, err)
	assert.Equal(t, id, v.ID)

	got, err := vlogs.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sigiriya", got.Title)
	assert.False(t, got.CreatedAt.IsZero())

	got.Title = "Sigiriya Rock"
	require.NoError(t, vlogs.Update(ctx, got))

	updated, err := vlogs.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Sigiriya Rock", updated.Title)
	assert.True(t, got.CreatedAt.Equal(updated.CreatedAt))

	n, err := vlogs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, vlogs.Delete(ctx, id))
	require.NoError(t, vlogs.Delete(ctx, id))

	missing, err := vlogs.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFirestoreUpdateMissing(t *testing.T) {
	vlogs := newEmulatorCollection(t)

	v := &domain.Vlog{Title: "ghost"}
	v.ID = "missing"
	err := vlogs.Update(context.Background(), v)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}
