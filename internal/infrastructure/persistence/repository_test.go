package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/storefront/cart/internal/domain/cart"
	"github.com/storefront/cart/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type failingSlotStore struct {
	err error
}

func (s failingSlotStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, s.err
}

func (s failingSlotStore) Put(context.Context, string, []byte) error {
	return s.err
}

func TestSlotRepository_LoadEmptySlot(t *testing.T) {
	repo := NewSlotRepository(NewMemorySlotStore(), "", zaptest.NewLogger(t))

	c, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, config.DefaultSlotKey, repo.slotKey)
}

func TestSlotRepository_SaveThenLoad(t *testing.T) {
	store := NewMemorySlotStore()
	repo := NewSlotRepository(store, "@RocketShoes:cart", zaptest.NewLogger(t))
	ctx := context.Background()

	original := sampleCart(t)
	require.NoError(t, repo.Save(ctx, original))

	payload, found, err := store.Get(ctx, "@RocketShoes:cart")
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, string(payload), `"amount":2`)

	loaded, err := NewSlotRepository(store, "@RocketShoes:cart", nil).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, original.AmountByProduct(), loaded.AmountByProduct())
	assert.True(t, original.Total().Equal(loaded.Total()))
}

func TestSlotRepository_SaveEmptyCartOverwrites(t *testing.T) {
	store := NewMemorySlotStore()
	repo := NewSlotRepository(store, "slot", zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleCart(t)))
	require.NoError(t, repo.Save(ctx, cart.Empty()))

	loaded, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}

func TestSlotRepository_LoadCorrupt(t *testing.T) {
	store := NewMemorySlotStore()
	require.NoError(t, store.Put(context.Background(), "slot", []byte("not json")))
	repo := NewSlotRepository(store, "slot", zaptest.NewLogger(t))

	c, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
	assert.True(t, c.IsEmpty())
}

func TestSlotRepository_StoreErrors(t *testing.T) {
	storeErr := errors.New("backend down")
	repo := NewSlotRepository(failingSlotStore{err: storeErr}, "slot", zaptest.NewLogger(t))

	_, err := repo.Load(context.Background())
	assert.ErrorIs(t, err, storeErr)

	err = repo.Save(context.Background(), sampleCart(t))
	assert.ErrorIs(t, err, storeErr)
}

func TestDriverName(t *testing.T) {
	assert.Equal(t, "memory", DriverName(NewMemorySlotStore()))
	assert.Equal(t, "sqlite", DriverName(newSQLiteSlotStore(t)))
	assert.Equal(t, "persistence.failingSlotStore", DriverName(failingSlotStore{}))
}
