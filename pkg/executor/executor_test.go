package executor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/syncplan"
)

type mockSession struct {
	mock.Mock
}

func (m *mockSession) List(ctx context.Context, root string) ([]string, error) {
	args := m.Called(ctx, root)
	files, _ := args.Get(0).([]string)
	return files, args.Error(1)
}

func (m *mockSession) Upload(ctx context.Context, local, remote string) error {
	return m.Called(ctx, local, remote).Error(0)
}

func (m *mockSession) Delete(ctx context.Context, remote string) error {
	return m.Called(ctx, remote).Error(0)
}

func (m *mockSession) Close() error {
	return m.Called().Error(0)
}

func testPlan() *syncplan.SyncPlan {
	return &syncplan.SyncPlan{
		Uploads: []syncplan.Transfer{
			{Local: "/l/a.txt", Remote: "/r/a.txt", Size: 3},
			{Local: "/l/b/c.txt", Remote: "/r/b/c.txt", Size: 4},
		},
		Deletes: []string{"/r/b/old.txt"},
	}
}

func TestExecute_UploadsThenDeletes(t *testing.T) {
	sess := &mockSession{}
	var mu sync.Mutex
	var order []string
	record := func(op string) func(mock.Arguments) {
		return func(mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, op)
		}
	}
	sess.On("Upload", mock.Anything, "/l/a.txt", "/r/a.txt").Return(nil).Run(record("upload"))
	sess.On("Upload", mock.Anything, "/l/b/c.txt", "/r/b/c.txt").Return(nil).Run(record("upload"))
	sess.On("Delete", mock.Anything, "/r/b/old.txt").Return(nil).Run(record("delete"))

	result, err := New(sess, Options{Workers: 4}).Execute(context.Background(), testPlan())
	require.NoError(t, err)

	sess.AssertExpectations(t)
	assert.Equal(t, []string{"upload", "upload", "delete"}, order)
	assert.Equal(t, 2, result.Uploaded)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, int64(7), result.Bytes)
	assert.False(t, result.DryRun)
}

func TestExecute_FailedUploadSkipsDeletes(t *testing.T) {
	sess := &mockSession{}
	sess.On("Upload", mock.Anything, "/l/a.txt", "/r/a.txt").Return(errors.New(errors.ErrTransport, "disk full"))
	sess.On("Upload", mock.Anything, "/l/b/c.txt", "/r/b/c.txt").Return(nil).Maybe()

	_, err := New(sess, Options{Workers: 1}).Execute(context.Background(), testPlan())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))
	sess.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestExecute_PlainErrorsBecomeTransportErrors(t *testing.T) {
	sess := &mockSession{}
	sess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	_, err := New(sess, Options{}).Execute(context.Background(), testPlan())
	assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))
}

func TestExecute_Timeout(t *testing.T) {
	sess := &mockSession{}
	sess.On("Upload", mock.Anything, mock.Anything, mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		})

	_, err := New(sess, Options{Workers: 2, Timeout: 20 * time.Millisecond}).Execute(context.Background(), testPlan())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTransportTimeout), "got %v", err)
	sess.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestExecute_WorkerLimit(t *testing.T) {
	plan := &syncplan.SyncPlan{}
	for i := 0; i < 20; i++ {
		plan.Uploads = append(plan.Uploads, syncplan.Transfer{Local: "/l", Remote: "/r"})
	}

	var active, peak atomic.Int32
	sess := &mockSession{}
	sess.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return(nil).Run(func(mock.Arguments) {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		active.Add(-1)
	})

	result, err := New(sess, Options{Workers: 3}).Execute(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 20, result.Uploaded)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestExecute_DryRun(t *testing.T) {
	result, err := New(nil, Options{DryRun: true}).Execute(context.Background(), testPlan())
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 2, result.Uploaded)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, int64(7), result.Bytes)
}

func TestExecute_NoSession(t *testing.T) {
	_, err := New(nil, Options{}).Execute(context.Background(), testPlan())
	assert.True(t, errors.IsErrorCode(err, errors.ErrInternal))
}
