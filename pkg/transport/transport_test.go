package transport_test

import (
	"context"
	"testing"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/targets"
	"github.com/arthur-debert/rioship/pkg/transport"
	"github.com/arthur-debert/rioship/pkg/transport/local"
	"github.com/arthur-debert/rioship/pkg/transport/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviders(t *testing.T) {
	providers, err := transport.NewProviders(local.New(), ssh.New(ssh.Options{}))
	require.NoError(t, err)
	assert.Equal(t, []string{"local", "ssh"}, providers.Names())

	assert.True(t, errors.IsErrorCode(providers.Register(local.New()), errors.ErrAlreadyExists))

	dir := t.TempDir()
	sess, err := providers.Connect(context.Background(), targets.Target{Name: "sim", Address: dir, Transport: "local"})
	require.NoError(t, err)
	require.NoError(t, sess.Close())

	_, err = providers.Connect(context.Background(), targets.Target{Name: "sim", Address: dir, Transport: "carrier-pigeon"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTransport))
}
