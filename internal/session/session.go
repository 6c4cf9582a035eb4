// Package session tracks who is logged in to the Budgie API.
package session

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/budgie-app/budgie/internal/api"
	"github.com/budgie-app/budgie/internal/model"
)

// State is the login state.
type State int

const (
	StateUnknown State = iota
	StateLoggedIn
	StateLoggedOut
)

func (s State) String() string {
	switch s {
	case StateLoggedIn:
		return "logged in"
	case StateLoggedOut:
		return "logged out"
	}
	return "unknown"
}

// Authenticator is the part of the API client a Session needs.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (model.User, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (model.User, error)
}

// Session is safe for concurrent use. Listeners run after every state change,
// outside the lock.
type Session struct {
	auth   Authenticator
	logger *log.Logger

	mu        sync.Mutex
	state     State
	user      model.User
	lastError string
	loading   int
	listeners []func(State)
}

// New returns a Session in StateUnknown. A nil logger discards output.
func New(auth Authenticator, logger *log.Logger) *Session {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Session{auth: auth, logger: logger}
}

// CheckSession asks the server who owns the current cookies. Any failure,
// including a transport error, leaves the session logged out.
func (s *Session) CheckSession(ctx context.Context) {
	s.begin()
	u, err := s.auth.Me(ctx)
	if err != nil {
		s.logger.Debug("no active session", "err", err)
		s.finish(func() {
			s.state = StateLoggedOut
			s.user = model.User{}
		})
		return
	}
	s.finish(func() {
		s.state = StateLoggedIn
		s.user = u
	})
}

// Login authenticates. On failure the server message is kept as LastError,
// the session stays logged out and the error is returned as an *api.AuthError.
func (s *Session) Login(ctx context.Context, username, password string) error {
	s.begin()
	u, err := s.auth.Login(ctx, username, password)
	if err != nil {
		var ae *api.AuthError
		if !errors.As(err, &ae) {
			ae = &api.AuthError{Message: err.Error()}
		}
		s.logger.Warn("login failed", "username", username, "status", ae.Status, "message", ae.Message)
		s.finish(func() {
			s.state = StateLoggedOut
			s.user = model.User{}
			s.lastError = ae.Message
		})
		return ae
	}
	s.logger.Info("logged in", "username", u.Username)
	s.finish(func() {
		s.state = StateLoggedIn
		s.user = u
		s.lastError = ""
	})
	return nil
}

// Logout ends the session. LastError is cleared either way; the user is
// cleared only when the server accepts the logout.
func (s *Session) Logout(ctx context.Context) error {
	s.begin()
	err := s.auth.Logout(ctx)
	if err != nil {
		var ae *api.AuthError
		if !errors.As(err, &ae) {
			ae = &api.AuthError{Message: err.Error()}
		}
		s.finish(func() { s.lastError = "" })
		return ae
	}
	s.finish(func() {
		s.state = StateLoggedOut
		s.user = model.User{}
		s.lastError = ""
	})
	return nil
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) IsLoggedIn() bool {
	return s.State() == StateLoggedIn
}

// IsLoading reports whether a check, login or logout is in progress.
func (s *Session) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading > 0
}

// User returns the logged-in user and whether there is one.
func (s *Session) User() (model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user, s.state == StateLoggedIn
}

// LastError is the message of the most recent failed login.
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// Subscribe registers fn to receive the state after each operation completes.
func (s *Session) Subscribe(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Session) begin() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
}

func (s *Session) finish(apply func()) {
	s.mu.Lock()
	apply()
	s.loading--
	state := s.state
	fns := append([]func(State){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
