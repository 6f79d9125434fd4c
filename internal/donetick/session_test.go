package donetick

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestSession_StaticTokenNeverLogsIn(t *testing.T) {
	s := newStaticSession("secret-token")

	token, err := s.Token(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "secret-token" {
		t.Errorf("expected static token, got %q", token)
	}
	if !s.isStatic() {
		t.Error("expected static mode")
	}
}

func TestSession_SingleFlightLogin(t *testing.T) {
	var logins atomic.Int32
	s := newLoginSession(func(ctx context.Context) (string, time.Time, error) {
		logins.Add(1)
		time.Sleep(50 * time.Millisecond) // hold the flight open for the second caller
		return "tok", time.Now().Add(time.Hour), nil
	})

	var wg sync.WaitGroup
	tokens := make([]string, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = s.Token(context.Background())
		}(i)
	}
	wg.Wait()

	if n := logins.Load(); n != 1 {
		t.Errorf("expected exactly 1 upstream login, got %d", n)
	}
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Errorf("caller %d: unexpected error: %v", i, errs[i])
		}
		if tokens[i] != "tok" {
			t.Errorf("caller %d: expected shared token, got %q", i, tokens[i])
		}
	}
}

func TestSession_ReusesValidToken(t *testing.T) {
	var logins atomic.Int32
	s := newLoginSession(func(ctx context.Context) (string, time.Time, error) {
		logins.Add(1)
		return "tok", time.Now().Add(time.Hour), nil
	})

	for i := 0; i < 5; i++ {
		if _, err := s.Token(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if n := logins.Load(); n != 1 {
		t.Errorf("expected 1 login for 5 calls, got %d", n)
	}
}

func TestSession_RefreshesNearExpiry(t *testing.T) {
	var logins atomic.Int32
	s := newLoginSession(func(ctx context.Context) (string, time.Time, error) {
		logins.Add(1)
		// Expiry inside the refresh window, so every call re-authenticates.
		return "tok", time.Now().Add(30 * time.Second), nil
	})

	s.Token(context.Background())
	s.Token(context.Background())

	if n := logins.Load(); n != 2 {
		t.Errorf("expected re-login inside the refresh window, got %d logins", n)
	}
}

func TestSession_InvalidateForcesRelogin(t *testing.T) {
	var logins atomic.Int32
	s := newLoginSession(func(ctx context.Context) (string, time.Time, error) {
		logins.Add(1)
		return "tok", time.Now().Add(time.Hour), nil
	})

	token, _ := s.Token(context.Background())
	s.Invalidate(token)
	s.Token(context.Background())

	if n := logins.Load(); n != 2 {
		t.Errorf("expected re-login after invalidation, got %d logins", n)
	}
}

func TestSession_InvalidateIgnoresReplacedToken(t *testing.T) {
	var logins atomic.Int32
	s := newLoginSession(func(ctx context.Context) (string, time.Time, error) {
		logins.Add(1)
		return "tok", time.Now().Add(time.Hour), nil
	})

	s.Token(context.Background())
	s.Invalidate("some-older-token")
	s.Token(context.Background())

	if n := logins.Load(); n != 1 {
		t.Errorf("stale invalidation must not drop the current token; got %d logins", n)
	}
}

func TestSession_LoginFailureSurfacedOnce(t *testing.T) {
	var logins atomic.Int32
	s := newLoginSession(func(ctx context.Context) (string, time.Time, error) {
		logins.Add(1)
		return "", time.Time{}, &AuthenticationError{Reason: "bad credentials"}
	})

	_, err := s.Token(context.Background())
	var ae *AuthenticationError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if n := logins.Load(); n != 1 {
		t.Errorf("session must not retry login on its own; got %d attempts", n)
	}
}

func TestTokenExpiry_PrefersExpireField(t *testing.T) {
	expiry := tokenExpiry("not-a-jwt", "2025-11-10T09:00:00Z")
	want := time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)
	if !expiry.Equal(want) {
		t.Errorf("expected %v, got %v", want, expiry)
	}
}

func TestTokenExpiry_FallsBackToJWTClaim(t *testing.T) {
	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("signing test token: %v", err)
	}

	expiry := tokenExpiry(signed, "")
	if !expiry.Equal(exp) {
		t.Errorf("expected %v from exp claim, got %v", exp, expiry)
	}
}

func TestTokenExpiry_UnparseableDefaultsShortLived(t *testing.T) {
	before := time.Now()
	expiry := tokenExpiry("garbage", "")
	if expiry.Before(before) || expiry.After(before.Add(10*time.Minute)) {
		t.Errorf("expected a short-lived fallback expiry, got %v", expiry)
	}
}
