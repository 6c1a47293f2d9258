// Package ssh implements the secure-shell transport. File operations are
// plain shell commands run over ssh sessions, so the target needs nothing
// beyond a POSIX shell, find, cat, mv and rm.
package ssh

import (
	"bufio"
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/logging"
	"github.com/arthur-debert/rioship/pkg/targets"
	"github.com/arthur-debert/rioship/pkg/transport"
)

// Name is the provider name used in target definitions.
const Name = "ssh"

// Options configure the transport.
type Options struct {
	DialTimeout time.Duration
}

// Transport connects to targets over ssh.
type Transport struct {
	opts Options
}

// New creates the ssh transport.
func New(opts Options) *Transport {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &Transport{opts: opts}
}

func (t *Transport) Name() string { return Name }

// Connect tries each target address in order and keeps the first that
// accepts the connection and authentication.
func (t *Transport) Connect(ctx context.Context, target targets.Target) (transport.Session, error) {
	log := logging.GetLogger("transport.ssh").With().Str("target", target.Name).Logger()

	auth, err := authMethods(target)
	if err != nil {
		return nil, err
	}
	config := &ssh.ClientConfig{
		User: target.User,
		Auth: auth,
		// controllers are reimaged often and have no stable host key
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.opts.DialTimeout,
	}

	addresses := target.Addresses()
	if len(addresses) == 0 {
		return nil, errors.Transport(nil, "target %q has no address", target.Name)
	}

	var lastErr error
	for _, addr := range addresses {
		hostPort := net.JoinHostPort(addr, strconv.Itoa(target.Port))
		client, err := t.dial(ctx, hostPort, config)
		if err == nil {
			log.Info().Str("address", hostPort).Msg("Connected")
			return &Session{client: client, address: hostPort}, nil
		}
		if cerr := contextDone(ctx); cerr != nil {
			if stderrors.Is(cerr, context.DeadlineExceeded) {
				return nil, errors.Wrapf(cerr, errors.ErrTransportTimeout, "connecting to %q", target.Name)
			}
			return nil, fmt.Errorf("connecting to %q: %w", target.Name, cerr)
		}
		log.Debug().Err(err).Str("address", hostPort).Msg("Address unreachable, trying next")
		lastErr = err
	}

	return nil, errors.Transport(lastErr, "could not reach target %q at %s", target.Name, strings.Join(addresses, ", ")).
		WithDetail("target", target.Name)
}

func (t *Transport) dial(ctx context.Context, hostPort string, config *ssh.ClientConfig) (*ssh.Client, error) {
	dialer := net.Dialer{Timeout: t.opts.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", hostPort)
	if err != nil {
		return nil, err
	}
	// ClientConfig.Timeout only covers the dial; bound the handshake too.
	deadline := time.Now().Add(t.opts.DialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	c, chans, reqs, err := ssh.NewClientConn(conn, hostPort, config)
	if !stop() || err != nil {
		_ = conn.Close()
		if err == nil {
			err = ctx.Err()
		}
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(c, chans, reqs), nil
}

// contextDone reports ctx's error, treating a passed deadline as exceeded
// even before the context's own timer has fired.
func contextDone(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d, ok := ctx.Deadline(); ok && !time.Now().Before(d) {
		return context.DeadlineExceeded
	}
	return nil
}

// authMethods builds the client auth chain for the target's auth mode.
func authMethods(target targets.Target) ([]ssh.AuthMethod, error) {
	switch target.Auth {
	case targets.AuthNone, "":
		// the controller's admin and lvuser accounts have empty passwords
		return []ssh.AuthMethod{ssh.Password(""), keyboardInteractive("")}, nil
	case targets.AuthPassword:
		return []ssh.AuthMethod{ssh.Password(target.Password), keyboardInteractive(target.Password)}, nil
	case targets.AuthKey:
		pem, err := os.ReadFile(target.KeyFile)
		if err != nil {
			return nil, errors.Transport(err, "cannot read key file %s", target.KeyFile)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, errors.Transport(err, "cannot parse key file %s", target.KeyFile)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return nil, errors.Newf(errors.ErrInvalidInput, "unknown auth mode %q", target.Auth)
}

func keyboardInteractive(answer string) ssh.AuthMethod {
	return ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range answers {
			answers[i] = answer
		}
		return answers, nil
	})
}

// Session runs file operations as remote commands.
type Session struct {
	client  *ssh.Client
	address string
}

func (s *Session) List(ctx context.Context, root string) ([]string, error) {
	out, err := s.run(ctx, listCommand(root), nil)
	if err != nil {
		return nil, errors.Transport(err, "failed to list %s on %s", root, s.address)
	}
	return parseListing(out), nil
}

func (s *Session) Upload(ctx context.Context, local, remote string) error {
	f, err := os.Open(local)
	if err != nil {
		return errors.Transport(err, "failed to open %s", local)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return errors.Transport(err, "failed to stat %s", local)
	}
	if _, err := s.run(ctx, uploadCommand(remote, info.Mode().Perm()), f); err != nil {
		return errors.Transport(err, "failed to upload %s to %s", local, remote)
	}
	return nil
}

func (s *Session) Delete(ctx context.Context, remote string) error {
	if _, err := s.run(ctx, deleteCommand(remote), nil); err != nil {
		return errors.Transport(err, "failed to delete %s", remote)
	}
	return nil
}

func (s *Session) Close() error {
	return s.client.Close()
}

// run executes cmd and returns its stdout. A done context kills the remote
// command.
func (s *Session) run(ctx context.Context, cmd string, stdin io.Reader) ([]byte, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Close() }()

	var stdout, stderr bytes.Buffer
	sess.Stdin = stdin
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	if err := sess.Start(cmd); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() { done <- sess.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
		}
		return stdout.Bytes(), nil
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		return nil, ctx.Err()
	}
}

func listCommand(root string) string {
	q := shellQuote(root)
	return fmt.Sprintf("if [ -d %s ]; then find %s -type f; fi", q, q)
}

func uploadCommand(remote string, mode os.FileMode) string {
	dir := shellQuote(path.Dir(remote))
	tmp := shellQuote(remote + ".rioship-tmp")
	return fmt.Sprintf("mkdir -p %s && cat > %s && chmod %o %s && mv -f %s %s",
		dir, tmp, uint32(mode), tmp, tmp, shellQuote(remote))
}

func deleteCommand(remote string) string {
	return "rm -f " + shellQuote(remote)
}

func parseListing(out []byte) []string {
	var files []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			files = append(files, path.Clean(line))
		}
	}
	sort.Strings(files)
	return files
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
