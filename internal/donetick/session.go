package donetick

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// refreshWindow is how long before expiry a token is refreshed proactively.
const refreshWindow = 60 * time.Second

// loginTimeout bounds the shared login call. Login runs detached from the
// triggering caller's context so a cancelled waiter cannot abort a login
// other waiters are sharing.
const loginTimeout = 30 * time.Second

// loginFunc performs one upstream login and returns the bearer token with
// its expiry.
type loginFunc func(ctx context.Context) (token string, expiry time.Time, err error)

// session owns the bearer credential. In static-token mode it is inert; in
// password mode it logs in lazily, refreshes inside the pre-expiry window,
// and coalesces concurrent logins into a single upstream call.
type session struct {
	static string

	mu     sync.Mutex
	token  string
	expiry time.Time

	login loginFunc
	group singleflight.Group
	now   func() time.Time
}

func newStaticSession(token string) *session {
	return &session{static: token, now: time.Now}
}

func newLoginSession(login loginFunc) *session {
	return &session{login: login, now: time.Now}
}

// isStatic reports whether the pre-shared secret header is in use.
func (s *session) isStatic() bool { return s.static != "" }

// staticToken returns the pre-shared secret.
func (s *session) staticToken() string { return s.static }

// Token returns a bearer token that is not known to be expired, logging in
// or refreshing first when needed. Concurrent callers share one in-flight
// login.
func (s *session) Token(ctx context.Context) (string, error) {
	if s.isStatic() {
		return s.static, nil
	}

	s.mu.Lock()
	if s.token != "" && s.now().Add(refreshWindow).Before(s.expiry) {
		token := s.token
		s.mu.Unlock()
		return token, nil
	}
	s.mu.Unlock()

	type loginResult struct {
		token  string
		expiry time.Time
	}
	ch := s.group.DoChan("login", func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loginTimeout)
		defer cancel()
		token, expiry, err := s.login(lctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.token = token
		s.expiry = expiry
		s.mu.Unlock()
		return loginResult{token: token, expiry: expiry}, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(loginResult).token, nil
	case <-ctx.Done():
		// The shared login keeps running for the other waiters.
		return "", ctx.Err()
	}
}

// Invalidate drops the credential if it still matches the token that just
// got a 401. A token replaced by a concurrent refresh is left alone.
func (s *session) Invalidate(token string) {
	if s.isStatic() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == token {
		s.token = ""
		s.expiry = time.Time{}
	}
}

// tokenExpiry resolves the credential's expiry: the login response's expire
// field when present, otherwise the JWT exp claim. The token is parsed
// unverified; the upstream server is the one verifying signatures.
func tokenExpiry(token, expire string) time.Time {
	if expire != "" {
		if t, err := time.Parse(time.RFC3339, expire); err == nil {
			return t
		}
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	// No usable expiry; treat the token as short-lived so the next call
	// past the window re-authenticates.
	return time.Now().Add(5 * time.Minute)
}
