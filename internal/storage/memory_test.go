package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_BasicOps(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "chunk:a", []byte("alpha")))

	value, err := store.Get(ctx, "chunk:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), value)

	_, err = store.Get(ctx, "chunk:b")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Delete(ctx, "chunk:a"))
	_, err = store.Get(ctx, "chunk:a")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "chunk:a", []byte("alpha")))

	value, err := store.Get(ctx, "chunk:a")
	require.NoError(t, err)
	value[0] = 'X'

	again, err := store.Get(ctx, "chunk:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), again, "mutating a returned value must not affect the store")
}

func TestMemoryStore_Scan(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Put(ctx, "sync:a", []byte("1")))
	require.NoError(t, store.Put(ctx, "sync:b", []byte("2")))
	require.NoError(t, store.Put(ctx, "chunk:a", []byte("3")))

	states, err := store.Scan(ctx, PrefixSync)
	require.NoError(t, err)
	assert.Len(t, states, 2)
}

func TestMemoryStore_UpdateAtomicity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "chunk:existing", []byte("old")))

	boom := errors.New("boom")
	err := store.Update(ctx, func(tx Tx) error {
		if err := tx.Put(ctx, "chunk:existing", []byte("new")); err != nil {
			return err
		}
		if err := tx.Put(ctx, "chunk:fresh", []byte("x")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	value, err := store.Get(ctx, "chunk:existing")
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), value)
	_, err = store.Get(ctx, "chunk:fresh")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_TxReadsOverlay(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "sync:a", []byte("committed")))

	err := store.Update(ctx, func(tx Tx) error {
		if err := tx.Put(ctx, "sync:a", []byte("staged")); err != nil {
			return err
		}
		value, err := tx.Get(ctx, "sync:a")
		if err != nil {
			return err
		}
		assert.Equal(t, []byte("staged"), value, "tx reads must see staged writes")

		if err := tx.Delete(ctx, "sync:a"); err != nil {
			return err
		}
		_, err = tx.Get(ctx, "sync:a")
		assert.ErrorIs(t, err, ErrNotFound, "tx reads must see staged deletes")

		return tx.Put(ctx, "sync:a", []byte("final"))
	})
	require.NoError(t, err)

	value, err := store.Get(ctx, "sync:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("final"), value)
}

func TestMemoryStore_Closed(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Close())

	_, err := store.Get(ctx, "chunk:a")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, store.Put(ctx, "chunk:a", nil), ErrClosed)
}
