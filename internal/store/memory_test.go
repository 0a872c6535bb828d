package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	buf := []byte("Rvalue")
	require.NoError(t, m.Set(ctx, "k", buf))
	buf[0] = 'X'

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("Rvalue"), got)

	got[0] = 'Y'
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("Rvalue"), again)

	require.NoError(t, m.Delete(ctx, "k"))
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
	assert.Zero(t, m.Len())
}

func TestMemory_Keys(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	for _, k := range []string{"b:2", "a:1", "b:1", "c"} {
		require.NoError(t, m.Set(ctx, k, nil))
	}

	keys, err := m.Keys(ctx, "b:")
	require.NoError(t, err)
	assert.Equal(t, []string{"b:1", "b:2"}, keys)

	keys, err = m.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:1", "b:1", "b:2", "c"}, keys)
}

func TestMemory_Closed(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Close())

	_, _, err := m.Get(context.Background(), "k")
	assert.True(t, errors.Is(err, ErrClosed))
	assert.ErrorIs(t, m.Set(context.Background(), "k", nil), ErrClosed)
}

func TestMemory_CanceledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Set(ctx, "k", nil), context.Canceled)
}

func TestMemory_Concurrent(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d:%d", i, j)
				assert.NoError(t, m.Set(ctx, key, []byte(key)))
				got, ok, err := m.Get(ctx, key)
				assert.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, key, string(got))
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 800, m.Len())
}
