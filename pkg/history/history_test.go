package history

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := Open(path)
	require.NoError(t, err)
	return store, path
}

func TestStore_AddList(t *testing.T) {
	store, _ := openStore(t)
	defer func() { _ = store.Close() }()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		target := "roborio"
		if i%2 == 1 {
			target = "sim"
		}
		require.NoError(t, store.Add(Record{
			ID:       fmt.Sprintf("run-%d", i),
			Target:   target,
			State:    "Complete",
			Started:  base.Add(time.Duration(i) * time.Minute),
			Finished: base.Add(time.Duration(i)*time.Minute + 3*time.Second),
			Uploaded: i,
		}))
	}

	all, err := store.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "run-4", all[0].ID, "newest first")
	assert.Equal(t, 3*time.Second, all[0].Duration())

	roborio, err := store.List("roborio", 2)
	require.NoError(t, err)
	require.Len(t, roborio, 2)
	assert.Equal(t, []string{"run-4", "run-2"}, []string{roborio[0].ID, roborio[1].ID})
}

func TestStore_Persists(t *testing.T) {
	store, path := openStore(t)
	require.NoError(t, store.Add(Record{ID: "a", Target: "x", Started: time.Now()}))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	records, err := reopened.List("", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ID)
}

func TestStore_RejectsRecordWithoutID(t *testing.T) {
	store, _ := openStore(t)
	defer func() { _ = store.Close() }()

	assert.True(t, errors.IsErrorCode(store.Add(Record{Target: "x"}), errors.ErrInvalidInput))
}

func TestOpen_Locked(t *testing.T) {
	store, path := openStore(t)
	defer func() { _ = store.Close() }()

	_, err := Open(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrHistory))
}
