package risk

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradecontrol/internal/core"
)

func testPosition(token string) core.Position {
	return core.NewPosition(token, 0.0001, 0.1, 0.5, 0.1)
}

func TestPositionManager(t *testing.T) {
	t.Run("Open Close Get", func(t *testing.T) {
		pm := NewPositionManager(3)
		p := testPosition("MintA")
		require.NoError(t, pm.Open(p))
		assert.Equal(t, 1, pm.OpenCount())

		got, ok := pm.Get(p.ID)
		require.True(t, ok)
		assert.Equal(t, p.Token, got.Token)

		closed, err := pm.Close(p.ID)
		require.NoError(t, err)
		assert.Equal(t, p.ID, closed.ID)
		assert.Equal(t, 0, pm.OpenCount())

		_, ok = pm.Get(p.ID)
		assert.False(t, ok)
	})

	t.Run("Capacity Exceeded", func(t *testing.T) {
		pm := NewPositionManager(2)
		require.NoError(t, pm.Open(testPosition("A")))
		require.NoError(t, pm.Open(testPosition("B")))

		err := pm.Open(testPosition("C"))
		require.Error(t, err)
		assert.ErrorIs(t, err, core.ErrCapacityExceeded)
		assert.Equal(t, 2, pm.OpenCount())
	})

	t.Run("Close Unknown Is Not Found", func(t *testing.T) {
		pm := NewPositionManager(2)
		_, err := pm.Close(uuid.New())
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("Duplicate ID Rejected", func(t *testing.T) {
		pm := NewPositionManager(5)
		p := testPosition("A")
		require.NoError(t, pm.Open(p))
		assert.Error(t, pm.Open(p))
		assert.Equal(t, 1, pm.OpenCount())
	})

	t.Run("One Position Per Token", func(t *testing.T) {
		pm := NewPositionManager(5)
		first := testPosition("SameMint")
		require.NoError(t, pm.Open(first))
		assert.True(t, pm.HoldsToken("SameMint"))

		err := pm.Open(testPosition("SameMint"))
		assert.ErrorIs(t, err, core.ErrTokenHeld)
		assert.Equal(t, 1, pm.OpenCount())

		_, err = pm.Close(first.ID)
		require.NoError(t, err)
		assert.False(t, pm.HoldsToken("SameMint"))
		assert.NoError(t, pm.Open(testPosition("SameMint")), "token is free again after close")
	})

	t.Run("Concurrent Opens Of One Token", func(t *testing.T) {
		pm := NewPositionManager(10)
		var wg sync.WaitGroup
		var opened, held atomic.Int64
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := pm.Open(testPosition("Hot"))
				switch {
				case err == nil:
					opened.Add(1)
				case errors.Is(err, core.ErrTokenHeld):
					held.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int64(1), opened.Load())
		assert.Equal(t, int64(19), held.Load())
	})

	t.Run("All Returns Snapshot", func(t *testing.T) {
		pm := NewPositionManager(5)
		for i := 0; i < 3; i++ {
			require.NoError(t, pm.Open(testPosition(fmt.Sprintf("Mint%d", i))))
		}
		all := pm.All()
		assert.Len(t, all, 3)
	})

	t.Run("Concurrent Opens Never Exceed Capacity", func(t *testing.T) {
		const capacity = 10
		pm := NewPositionManager(capacity)

		var wg sync.WaitGroup
		var opened, rejected atomic.Int64
		for i := 0; i < 100; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := pm.Open(testPosition(fmt.Sprintf("Race%d", i)))
				switch {
				case err == nil:
					opened.Add(1)
				case errors.Is(err, core.ErrCapacityExceeded):
					rejected.Add(1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int64(capacity), opened.Load())
		assert.Equal(t, int64(90), rejected.Load())
		assert.Equal(t, capacity, pm.OpenCount())
	})

	t.Run("Concurrent Open And Close", func(t *testing.T) {
		pm := NewPositionManager(4)
		var wg sync.WaitGroup
		for i := 0; i < 40; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p := testPosition(fmt.Sprintf("Churn%d", i))
				if err := pm.Open(p); err == nil {
					assert.LessOrEqual(t, pm.OpenCount(), 4)
					_, err := pm.Close(p.ID)
					assert.NoError(t, err)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 0, pm.OpenCount())
	})
}
