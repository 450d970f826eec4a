/*
auth_test.go - Login, token and PIN tests

Tests for:
- Password hash round-trip
- Login success and credential failure modes
- Token verification and tampering
- Admin PIN check
- Admin bootstrap idempotence
*/
package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/harborview/staffing-engine/store/sqlite"
)

func newTestAuth(t *testing.T) (*Authenticator, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	a, err := New(store, Config{JWTSecret: "test-secret", AdminPin: "4321"})
	if err != nil {
		t.Fatalf("Failed to create authenticator: %v", err)
	}
	return a, store
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("Failed to hash: %v", err)
	}
	if !CheckPasswordHash("s3cret", hash) {
		t.Error("Correct password rejected")
	}
	if CheckPasswordHash("wrong", hash) {
		t.Error("Wrong password accepted")
	}
}

func TestLoginAndVerify(t *testing.T) {
	// GIVEN: A registered requester
	a, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := a.Register(ctx, "chef@example.com", "Chef", "s3cret", RoleRequester); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	// WHEN: Logging in with the right password
	token, profile, err := a.Login(ctx, "chef@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if profile.Role != RoleRequester {
		t.Errorf("Expected requester role, got %s", profile.Role)
	}

	// THEN: The token verifies and carries the identity
	claims, err := a.VerifyToken(token)
	if err != nil {
		t.Fatalf("Token rejected: %v", err)
	}
	if claims.Email != "chef@example.com" || claims.Role != RoleRequester {
		t.Errorf("Unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Error("Token issued already expired")
	}
}

func TestLoginFailures(t *testing.T) {
	a, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := a.Register(ctx, "chef@example.com", "Chef", "s3cret", RoleRequester); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}

	// Unknown email and wrong password are indistinguishable
	if _, _, err := a.Login(ctx, "nobody@example.com", "s3cret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for unknown email, got %v", err)
	}
	if _, _, err := a.Login(ctx, "chef@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for wrong password, got %v", err)
	}
}

func TestVerifyToken_Tampered(t *testing.T) {
	a, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := a.Register(ctx, "chef@example.com", "Chef", "s3cret", RoleRequester); err != nil {
		t.Fatalf("Failed to register: %v", err)
	}
	token, _, err := a.Login(ctx, "chef@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// Flipping the signature invalidates the token
	tampered := token[:len(token)-2] + "xx"
	if _, err := a.VerifyToken(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
	if _, err := a.VerifyToken("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken for garbage, got %v", err)
	}
}

func TestVerifyAdminPin(t *testing.T) {
	a, _ := newTestAuth(t)

	if err := a.VerifyAdminPin("4321"); err != nil {
		t.Errorf("Correct PIN rejected: %v", err)
	}
	if err := a.VerifyAdminPin("0000"); !errors.Is(err, ErrInvalidPin) {
		t.Errorf("Expected ErrInvalidPin, got %v", err)
	}

	// An unset server PIN rejects everything, including the empty string
	store, _ := sqlite.New(":memory:")
	t.Cleanup(func() { store.Close() })
	noPin, err := New(store, Config{JWTSecret: "s"})
	if err != nil {
		t.Fatalf("Failed to create authenticator: %v", err)
	}
	if err := noPin.VerifyAdminPin(""); !errors.Is(err, ErrInvalidPin) {
		t.Errorf("Expected ErrInvalidPin for unset PIN, got %v", err)
	}
}

func TestRegister_UnknownRole(t *testing.T) {
	a, _ := newTestAuth(t)

	_, err := a.Register(context.Background(), "x@example.com", "X", "pw", "superuser")
	if err == nil || !strings.Contains(err.Error(), "unknown role") {
		t.Errorf("Expected unknown role error, got %v", err)
	}
}

func TestEnsureAdmin_Idempotent(t *testing.T) {
	// GIVEN: An empty directory
	a, store := newTestAuth(t)
	ctx := context.Background()

	// WHEN: Bootstrapping twice
	if err := a.EnsureAdmin(ctx, "admin@example.com", "bootpw"); err != nil {
		t.Fatalf("First bootstrap failed: %v", err)
	}
	if err := a.EnsureAdmin(ctx, "admin@example.com", "bootpw"); err != nil {
		t.Fatalf("Second bootstrap failed: %v", err)
	}

	// THEN: One admin exists and can log in
	profiles, err := store.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("Failed to list profiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("Expected 1 profile, got %d", len(profiles))
	}
	if _, _, err := a.Login(ctx, "admin@example.com", "bootpw"); err != nil {
		t.Errorf("Bootstrapped admin cannot log in: %v", err)
	}

	// AND: Empty inputs skip seeding
	if err := a.EnsureAdmin(ctx, "", ""); err != nil {
		t.Errorf("Empty bootstrap should be a no-op, got %v", err)
	}
}
