package boltdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskianand4/fieldkeeper/internal/client/storage"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "session.db")
	s, err := New(context.Background(), dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})
	return s
}

func TestPutGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	err := s.Put(ctx, storage.KeySecureToken, []byte("blob"))
	require.NoError(t, err)

	value, err := s.Get(ctx, storage.KeySecureToken)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), value)
}

func TestPutOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.Put(ctx, storage.KeyLastActivity, []byte("1")))
	require.NoError(t, s.Put(ctx, storage.KeyLastActivity, []byte("2")))

	value, err := s.Get(ctx, storage.KeyLastActivity)
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), value)
}

func TestGetMissingKey(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	require.NoError(t, s.Put(ctx, storage.KeyUser, []byte("{}")))
	require.NoError(t, s.Delete(ctx, storage.KeyUser))

	_, err := s.Get(ctx, storage.KeyUser)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)

	// Повторное удаление отсутствующего ключа не ошибка
	assert.NoError(t, s.Delete(ctx, storage.KeyUser))
}
