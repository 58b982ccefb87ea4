// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parleyd Contributors

package handlers

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyd/parleyd/internal/auth"
	"github.com/parleyd/parleyd/internal/command"
	"github.com/parleyd/parleyd/internal/core"
)

// stubHasher keeps handler tests fast; argon2 behavior is covered in the
// auth package.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	return "stub$" + password, nil
}

func (stubHasher) Verify(password, hash string) (bool, error) {
	if !strings.HasPrefix(hash, "stub$") {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}
	return hash == "stub$"+password, nil
}

type sink struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	closed bool
}

func (s *sink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *sink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *sink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := strings.TrimRight(s.buf.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

func (s *sink) LastLine() string {
	lines := s.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

type env struct {
	services *command.Services
	pool     *auth.Pool
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store, err := auth.OpenStore(filepath.Join(t.TempDir(), "logins.txt"))
	require.NoError(t, err)

	pool := auth.NewPool(1)
	t.Cleanup(pool.Close)

	registry := core.NewRegistry(8)
	commands := command.NewRegistry()
	require.NoError(t, RegisterAll(commands))

	return &env{
		services: &command.Services{
			Sessions: registry,
			Router:   core.NewRouter(registry),
			Auth:     auth.NewService(store, stubHasher{}),
			Hashing:  pool,
			Commands: commands,
		},
		pool: pool,
	}
}

func (e *env) connect(t *testing.T, addr string) (*core.Session, *sink) {
	t.Helper()
	s := &sink{}
	sess, err := e.services.Sessions.Admit(s, addr)
	require.NoError(t, err)
	return sess, s
}

// drain waits for every job submitted before it to finish. The pool has
// one worker, so a barrier job runs only after the queue ahead of it.
func (e *env) drain() {
	done := make(chan struct{})
	e.pool.Submit("barrier", -1, func(_ ulid.ULID) { close(done) })
	<-done
}

func (e *env) run(t *testing.T, h command.Handler, sess *core.Session, args string) {
	t.Helper()
	err := h(context.Background(), &command.Execution{
		Session:  sess,
		Args:     args,
		Services: e.services,
	})
	require.NoError(t, err)
}

func (e *env) register(t *testing.T, username, password string) {
	t.Helper()
	require.NoError(t, e.services.Auth.Register(username, password))
}

func TestLogin_Success(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "password123")

	sess, out := e.connect(t, "a")
	_, peerOut := e.connect(t, "b")

	e.run(t, LoginHandler, sess, "alice password123")
	e.drain()

	assert.True(t, sess.Authenticated())
	assert.Equal(t, "alice", sess.Username())
	assert.Equal(t, "alice logged in.", out.LastLine())
	assert.Equal(t, "alice logged in.", peerOut.LastLine())
}

func TestLogin_WrongPassword(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "password123")

	sess, out := e.connect(t, "a")
	e.run(t, LoginHandler, sess, "alice wrong-password")
	e.drain()

	assert.False(t, sess.Authenticated())
	assert.Equal(t, "Username or password incorrect.", out.LastLine())
}

func TestLogin_UnknownUsername(t *testing.T) {
	e := newEnv(t)

	sess, out := e.connect(t, "a")
	e.run(t, LoginHandler, sess, "ghost password123")
	e.drain()

	assert.False(t, sess.Authenticated())
	assert.Equal(t, "Username or password incorrect.", out.LastLine())
}

func TestLogin_EmptyInformation(t *testing.T) {
	e := newEnv(t)
	sess, out := e.connect(t, "a")

	for _, args := range []string{"", "alice", " "} {
		e.run(t, LoginHandler, sess, args)
		assert.Equal(t, "You cannot login with empty information.", out.LastLine(), "args %q", args)
	}
	assert.False(t, sess.Authenticated())
}

func TestLogin_ReservedUsername(t *testing.T) {
	e := newEnv(t)
	sess, out := e.connect(t, "a")

	e.run(t, LoginHandler, sess, "all password123")
	assert.Equal(t, "You cannot login with a username containing a disallowed phrase.", out.LastLine())
}

func TestLogin_AlreadyLoggedIn(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "password123")

	sess, out := e.connect(t, "a")
	require.NoError(t, sess.SetUsername("bob"))

	e.run(t, LoginHandler, sess, "alice password123")
	assert.Equal(t, "Already logged in.", out.LastLine())
	assert.Equal(t, "bob", sess.Username())
}

func TestLogin_DisconnectBeforeCompletionDiscardsResult(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "password123")

	sess, out := e.connect(t, "a")
	_, peerOut := e.connect(t, "b")

	// Hold the worker so the disconnect happens before verification runs.
	gate := make(chan struct{})
	e.pool.Submit("gate", -1, func(_ ulid.ULID) { <-gate })

	e.run(t, LoginHandler, sess, "alice password123")
	e.services.Sessions.Remove(sess.ID())
	require.NoError(t, sess.Close())
	close(gate)
	e.drain()

	assert.Nil(t, out.Lines())
	assert.Nil(t, peerOut.Lines(), "no broadcast for a dead session's login")
}

func TestNewUser_Success(t *testing.T) {
	e := newEnv(t)

	sess, out := e.connect(t, "a")
	_, peerOut := e.connect(t, "b")

	e.run(t, NewUserHandler, sess, "alice password123")
	e.drain()

	assert.True(t, sess.Authenticated())
	assert.Equal(t, "alice", sess.Username())
	assert.True(t, e.services.Auth.UsernameTaken("alice"))
	assert.Equal(t, "alice logged in with a new account.", out.LastLine())
	assert.Equal(t, "alice logged in with a new account.", peerOut.LastLine())
}

func TestNewUser_Validation(t *testing.T) {
	e := newEnv(t)
	sess, out := e.connect(t, "a")

	tests := []struct {
		name string
		args string
		want string
	}{
		{"empty", "", "You cannot create a new user with empty information."},
		{"missing password", "alice", "You cannot create a new user with empty information."},
		{"username too long", strings.Repeat("a", 32) + " password123", "UserID is too long."},
		{"reserved username", "all password123", "UserID contains a disallowed phrase."},
		{"password too short", "alice short", "Password length must be between 8 and 64 characters."},
		{"password too long", "alice " + strings.Repeat("p", 65), "Password length must be between 8 and 64 characters."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.run(t, NewUserHandler, sess, tt.args)
			assert.Equal(t, tt.want, out.LastLine())
		})
	}
	assert.False(t, sess.Authenticated())
}

func TestNewUser_DuplicateUsername(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "password123")

	sess, out := e.connect(t, "a")
	e.run(t, NewUserHandler, sess, "alice other-password")

	assert.Equal(t, "UserID already exists.", out.LastLine())
	assert.False(t, sess.Authenticated())
}

func TestNewUser_WhileAuthenticated(t *testing.T) {
	e := newEnv(t)
	sess, out := e.connect(t, "a")
	require.NoError(t, sess.SetUsername("bob"))

	e.run(t, NewUserHandler, sess, "alice password123")
	assert.Equal(t, "Already logged in.", out.LastLine())
}

func TestLogout(t *testing.T) {
	e := newEnv(t)

	sess, out := e.connect(t, "a")
	_, peerOut := e.connect(t, "b")
	require.NoError(t, sess.SetUsername("alice"))

	e.run(t, LogoutHandler, sess, "")

	assert.False(t, sess.Authenticated())
	assert.Equal(t, "alice logged out.", out.LastLine())
	assert.Equal(t, "alice logged out.", peerOut.LastLine())
}

func TestLogout_Anonymous(t *testing.T) {
	e := newEnv(t)
	sess, out := e.connect(t, "a")

	e.run(t, LogoutHandler, sess, "")
	assert.Equal(t, "You are not logged in. ", out.LastLine())
}

func TestExit_Anonymous(t *testing.T) {
	e := newEnv(t)

	sess, out := e.connect(t, "a")
	_, peerOut := e.connect(t, "b")

	e.run(t, ExitHandler, sess, "")

	assert.True(t, out.Closed())
	assert.Nil(t, out.Lines(), "exiting session gets no departure notice")
	assert.Equal(t, fmt.Sprintf("Client %d disconnected from room.", sess.ID()), peerOut.LastLine())

	_, ok := e.services.Sessions.Get(sess.ID())
	assert.False(t, ok, "session should be removed from the registry")
}

func TestExit_Authenticated(t *testing.T) {
	e := newEnv(t)

	sess, _ := e.connect(t, "a")
	_, peerOut := e.connect(t, "b")
	require.NoError(t, sess.SetUsername("alice"))

	e.run(t, ExitHandler, sess, "")

	want := fmt.Sprintf("alice logged out.  Client %d disconnected from room.", sess.ID())
	assert.Equal(t, want, peerOut.LastLine())
}

func TestSend_Anonymous(t *testing.T) {
	e := newEnv(t)
	sess, out := e.connect(t, "a")

	e.run(t, SendHandler, sess, "bob hello")
	assert.Equal(t, "Denied.  Please log in first.", out.LastLine())
}

func TestSend_EmptyMessage(t *testing.T) {
	e := newEnv(t)
	sess, out := e.connect(t, "a")
	require.NoError(t, sess.SetUsername("alice"))

	for _, args := range []string{"", "bob"} {
		e.run(t, SendHandler, sess, args)
		assert.Equal(t, "Cannot send empty message.", out.LastLine(), "args %q", args)
	}
}

func TestSend_Direct(t *testing.T) {
	e := newEnv(t)

	alice, aliceOut := e.connect(t, "a")
	bob, bobOut := e.connect(t, "b")
	require.NoError(t, alice.SetUsername("alice"))
	require.NoError(t, bob.SetUsername("bob"))

	e.run(t, SendHandler, alice, "bob hi there")

	assert.Equal(t, "alice (to you): hi there ", bobOut.LastLine())
	assert.Equal(t, "alice (to bob): hi there", aliceOut.LastLine())
}

func TestSend_ToSelf(t *testing.T) {
	e := newEnv(t)

	alice, aliceOut := e.connect(t, "a")
	_, peerOut := e.connect(t, "b")
	require.NoError(t, alice.SetUsername("alice"))

	e.run(t, SendHandler, alice, "alice note to self")

	assert.Equal(t, "Message from yourself: note to self", aliceOut.LastLine())
	assert.Nil(t, peerOut.Lines())
}

func TestSend_ToAll(t *testing.T) {
	e := newEnv(t)

	alice, aliceOut := e.connect(t, "a")
	bob, bobOut := e.connect(t, "b")
	_, anonOut := e.connect(t, "c")
	require.NoError(t, alice.SetUsername("alice"))
	require.NoError(t, bob.SetUsername("bob"))

	e.run(t, SendHandler, alice, "all hello everyone")

	assert.Equal(t, "alice: hello everyone", aliceOut.LastLine())
	assert.Equal(t, "alice: hello everyone", bobOut.LastLine())
	assert.Nil(t, anonOut.Lines(), "anonymous sessions don't receive chat broadcasts")
}

func TestSend_UnknownTarget(t *testing.T) {
	e := newEnv(t)

	alice, aliceOut := e.connect(t, "a")
	require.NoError(t, alice.SetUsername("alice"))

	e.run(t, SendHandler, alice, "ghost hello")
	assert.Equal(t, "ghost is not on this server. ", aliceOut.LastLine())
}

func TestSend_DuplicateUsernamesAllReceive(t *testing.T) {
	e := newEnv(t)

	alice, _ := e.connect(t, "a")
	dup1, dup1Out := e.connect(t, "b")
	dup2, dup2Out := e.connect(t, "c")
	require.NoError(t, alice.SetUsername("alice"))
	require.NoError(t, dup1.SetUsername("dup"))
	require.NoError(t, dup2.SetUsername("dup"))

	e.run(t, SendHandler, alice, "dup hello")

	assert.Equal(t, "alice (to you): hello ", dup1Out.LastLine())
	assert.Equal(t, "alice (to you): hello ", dup2Out.LastLine())
}

func TestWho(t *testing.T) {
	e := newEnv(t)

	alice, aliceOut := e.connect(t, "10.0.0.1:1000")
	bob, _ := e.connect(t, "10.0.0.2:2000")
	_, _ = e.connect(t, "10.0.0.3:3000")
	require.NoError(t, alice.SetUsername("alice"))
	require.NoError(t, bob.SetUsername("bob"))

	e.run(t, WhoHandler, alice, "")

	lines := aliceOut.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, fmt.Sprintf("alice\t\tClient %d\t10.0.0.1:1000", alice.ID()), lines[0])
	assert.Equal(t, fmt.Sprintf("bob\t\tClient %d\t10.0.0.2:2000", bob.ID()), lines[1])
	assert.Equal(t, "2 logged in users.", lines[2])
}

func TestWho_NoUsers(t *testing.T) {
	e := newEnv(t)
	sess, out := e.connect(t, "a")

	e.run(t, WhoHandler, sess, "")
	assert.Equal(t, []string{"0 logged in users."}, out.Lines())
}

func TestWhoAmI(t *testing.T) {
	e := newEnv(t)
	sess, out := e.connect(t, "a")

	e.run(t, WhoAmIHandler, sess, "")
	assert.Equal(t, fmt.Sprintf("Client %d", sess.ID()), out.LastLine())

	require.NoError(t, sess.SetUsername("alice"))
	e.run(t, WhoAmIHandler, sess, "")
	assert.Equal(t, "alice", out.LastLine())
}

func TestHelp_ListsEveryCommand(t *testing.T) {
	e := newEnv(t)
	sess, out := e.connect(t, "a")

	e.run(t, HelpHandler, sess, "")

	lines := out.Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, "Command list:", lines[0])
	assert.Len(t, lines, len(e.services.Commands.All())+1)

	joined := strings.Join(lines, "\n")
	for _, name := range []string{"login", "newuser", "logout", "exit", "send", "who", "whoami", "help"} {
		assert.Contains(t, joined, name)
	}
}
