package contextstore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lakefence/internal/domain"
)

// fakeSession satisfies Session with just a key; MemoryStore never touches
// the SQL methods.
type fakeSession struct {
	key domain.SessionKey
}

func (s fakeSession) Key() domain.SessionKey { return s.key }

func (s fakeSession) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	panic("not used")
}

func (s fakeSession) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	panic("not used")
}

func TestMemoryStoreSetLookupClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sess := fakeSession{key: "sess-1"}

	_, ok, err := store.Lookup(ctx, sess)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, sess, "TENANT_100"))
	tenant, ok, err := store.Lookup(ctx, sess)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.TenantID("TENANT_100"), tenant)

	require.NoError(t, store.Clear(ctx, sess))
	_, ok, err = store.Lookup(ctx, sess)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreSetOverwrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sess := fakeSession{key: "sess-1"}

	require.NoError(t, store.Set(ctx, sess, "TENANT_100"))
	require.NoError(t, store.Set(ctx, sess, "TENANT_200"))

	tenant, ok, err := store.Lookup(ctx, sess)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.TenantID("TENANT_200"), tenant)

	active, err := store.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestMemoryStoreClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sess := fakeSession{key: "sess-1"}

	require.NoError(t, store.Clear(ctx, sess))
	require.NoError(t, store.Set(ctx, sess, "TENANT_100"))
	require.NoError(t, store.Clear(ctx, sess))
	require.NoError(t, store.Clear(ctx, sess))
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, fakeSession{key: "a"}, "TENANT_100"))
	require.NoError(t, store.Set(ctx, fakeSession{key: "b"}, "TENANT_200"))
	require.NoError(t, store.Clear(ctx, fakeSession{key: "a"}))

	tenant, ok, err := store.Lookup(ctx, fakeSession{key: "b"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, domain.TenantID("TENANT_200"), tenant)
}

func TestMemoryStorePurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, fakeSession{key: "old"}, "TENANT_100"))
	store.mu.Lock()
	rec := store.records["old"]
	rec.CreatedAt = time.Now().Add(-time.Hour)
	store.records["old"] = rec
	store.mu.Unlock()
	require.NoError(t, store.Set(ctx, fakeSession{key: "fresh"}, "TENANT_200"))

	purged, err := store.PurgeOlderThan(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	active, err := store.Active(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domain.SessionKey("fresh"), active[0].SessionKey)
}
