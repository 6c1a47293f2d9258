package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type provider struct {
	ID   int
	Name string
}

func TestRegister(t *testing.T) {
	reg := New[provider]("transport")

	t.Run("register valid item", func(t *testing.T) {
		require.NoError(t, reg.Register("ssh", provider{ID: 1, Name: "ssh"}))
		assert.Equal(t, 1, reg.Count())
		assert.True(t, reg.Has("ssh"))
	})

	t.Run("register with empty name", func(t *testing.T) {
		err := reg.Register("", provider{})
		assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
		assert.Contains(t, err.Error(), "transport name")
	})

	t.Run("register duplicate", func(t *testing.T) {
		err := reg.Register("ssh", provider{ID: 2})
		assert.True(t, errors.IsErrorCode(err, errors.ErrAlreadyExists))
	})
}

func TestGet(t *testing.T) {
	reg := New[provider]("target")
	require.NoError(t, reg.Register("roborio", provider{ID: 7}))

	got, err := reg.Get("roborio")
	require.NoError(t, err)
	assert.Equal(t, 7, got.ID)

	_, err = reg.Get("missing")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	assert.Equal(t, "missing", errors.GetErrorDetails(err)["target"])
}

func TestOrder(t *testing.T) {
	reg := New[provider]("")
	for i, name := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, reg.Register(name, provider{ID: i}))
	}

	assert.Equal(t, []string{"zeta", "alpha", "mid"}, reg.Names())
	values := reg.Values()
	require.Len(t, values, 3)
	assert.Equal(t, 0, values[0].ID)
	assert.Equal(t, 2, values[2].ID)
}

func TestConcurrentAccess(t *testing.T) {
	reg := New[provider]("item")
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = reg.Register(fmt.Sprintf("p%d", i), provider{ID: i})
			_ = reg.Has(fmt.Sprintf("p%d", i))
			_ = reg.Names()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, reg.Count())
}

func TestMustRegister(t *testing.T) {
	reg := New[provider]("item")
	MustRegister(reg, "a", provider{})
	assert.Panics(t, func() { MustRegister(reg, "a", provider{}) })
}
