package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenMissing = errors.New("auth: token missing")
	ErrTokenInvalid = errors.New("auth: token invalid")
	ErrTokenExpired = errors.New("auth: token expired")
	ErrNoSubject    = errors.New("auth: token has no subject")
)

// Authenticator verifies HS256 session tokens issued by the dashboard's login
// service. It never issues tokens for production use; Sign exists for tests and
// local tooling.
type Authenticator struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithIssuer requires the iss claim to match issuer.
func WithIssuer(issuer string) Option {
	return func(a *Authenticator) {
		a.issuer = issuer
	}
}

// WithLeeway tolerates clock skew when checking exp and nbf.
func WithLeeway(d time.Duration) Option {
	return func(a *Authenticator) {
		a.leeway = d
	}
}

// WithClock overrides the time source used for claim validation.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) {
		a.now = now
	}
}

func NewAuthenticator(secret string, opts ...Option) *Authenticator {
	a := &Authenticator{
		secret: []byte(secret),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Verify checks the token signature and registered claims and returns the
// subject as the user id.
func (a *Authenticator) Verify(token string) (string, error) {
	if token == "" {
		return "", ErrTokenMissing
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(a.now),
		jwt.WithLeeway(a.leeway),
	}
	if a.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, parserOpts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return "", fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.Subject == "" {
		return "", ErrNoSubject
	}
	return claims.Subject, nil
}

// Sign issues a token for userID that expires after ttl.
func (a *Authenticator) Sign(userID string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
