/*
Package auth provides password hashing, JWT session tokens and the
server-side admin PIN check.

PURPOSE:
  The dashboard has two roles: requesters submit extra-staff requests,
  admins additionally manage sectors, budgets, lots, manual stats and
  configuration. Login verifies a bcrypt hash from the profiles table
  and issues a signed HS256 token carrying the email and role. Entering
  the admin area additionally requires a short PIN, checked server-side
  only; the PIN never ships to a client.

TOKEN SHAPE:
  Claims embed jwt.RegisteredClaims (expiry, issued-at) plus the email
  and role. Tokens expire after the configured TTL; there is no refresh
  flow, clients log in again.

BOOTSTRAP:
  EnsureAdmin seeds one admin profile from environment-style inputs when
  the directory has no admin yet, so a fresh database is reachable.

SEE ALSO:
  - api: Middleware enforcing RequireAuth / RequireAdmin
  - store/sqlite: The profiles table backing the directory
*/
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/harborview/staffing-engine/store/sqlite"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned for expired, malformed or badly signed
	// tokens.
	ErrInvalidToken = errors.New("invalid token")

	// ErrInvalidPin is returned when the admin PIN does not match.
	ErrInvalidPin = errors.New("invalid pin")
)

const (
	RoleAdmin     = "admin"
	RoleRequester = "requester"
)

// Claims is the JWT payload for a dashboard session.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies session tokens against the profile
// directory.
type Authenticator struct {
	store    *sqlite.Store
	secret   []byte
	adminPin string
	tokenTTL time.Duration
}

// Config carries the secrets the Authenticator needs. Zero TokenTTL
// defaults to 24h.
type Config struct {
	JWTSecret string
	AdminPin  string
	TokenTTL  time.Duration
}

// New builds an Authenticator over the profile directory.
func New(store *sqlite.Store, cfg Config) (*Authenticator, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &Authenticator{
		store:    store,
		secret:   []byte(cfg.JWTSecret),
		adminPin: cfg.AdminPin,
		tokenTTL: ttl,
	}, nil
}

// HashPassword hashes a password with bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Login verifies the email/password pair and returns a signed token plus
// the matched profile. Unknown email and wrong password both report
// ErrInvalidCredentials.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, sqlite.Profile, error) {
	profile, err := a.store.GetProfileByEmail(ctx, email)
	if errors.Is(err, sqlite.ErrNotFound) {
		return "", sqlite.Profile{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", sqlite.Profile{}, err
	}
	if !CheckPasswordHash(password, profile.PasswordHash) {
		return "", sqlite.Profile{}, ErrInvalidCredentials
	}

	token, err := a.issueToken(profile)
	if err != nil {
		return "", sqlite.Profile{}, err
	}
	return token, profile, nil
}

func (a *Authenticator) issueToken(profile sqlite.Profile) (string, error) {
	now := time.Now()
	claims := &Claims{
		Email: profile.Email,
		Role:  profile.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// VerifyToken parses and validates a session token.
func (a *Authenticator) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyAdminPin checks the admin-area PIN in constant time. An unset
// server PIN rejects everything.
func (a *Authenticator) VerifyAdminPin(pin string) error {
	if a.adminPin == "" {
		return ErrInvalidPin
	}
	if subtle.ConstantTimeCompare([]byte(pin), []byte(a.adminPin)) != 1 {
		return ErrInvalidPin
	}
	return nil
}

// Register creates a profile with a hashed password and returns it.
func (a *Authenticator) Register(ctx context.Context, email, name, password, role string) (sqlite.Profile, error) {
	if role != RoleAdmin && role != RoleRequester {
		return sqlite.Profile{}, fmt.Errorf("unknown role %q", role)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return sqlite.Profile{}, err
	}
	profile := sqlite.Profile{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
	}
	if err := a.store.SaveProfile(ctx, profile); err != nil {
		return sqlite.Profile{}, err
	}
	return profile, nil
}

// EnsureAdmin seeds an admin profile when the directory has none with the
// given email. Empty inputs skip seeding.
func (a *Authenticator) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	_, err := a.store.GetProfileByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sqlite.ErrNotFound) {
		return err
	}
	_, err = a.Register(ctx, email, "Administrator", password, RoleAdmin)
	return err
}
