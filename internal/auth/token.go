// ABOUTME: JWT bearer token encoding and decoding for shieldsync
// ABOUTME: Uses HS256 signing with a process-wide secret loaded at startup

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors. Decode fails closed: a token that trips any of these carries
// no trusted claims at all.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("bad token signature")
	ErrExpiredToken   = errors.New("token expired")
	ErrMissingClaim   = errors.New("missing required claim")
)

// MinSecretLength is the minimum signing secret length in bytes.
const MinSecretLength = 32

// DefaultTokenTTL is the bearer token lifetime used when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// Claims holds the verified contents of a decoded bearer token.
type Claims struct {
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec mints and validates self-contained bearer tokens.
type TokenCodec interface {
	Encode(subject, role string, now time.Time) (string, error)
	Decode(tokenString string) (*Claims, error)
}

// JWTCodec implements TokenCodec using HS256 signed JWTs.
type JWTCodec struct {
	secret []byte
	ttl    time.Duration
}

// NewJWTCodec creates a codec with the given signing secret and token TTL.
// A ttl of zero selects DefaultTokenTTL. The secret must be at least
// MinSecretLength bytes.
func NewJWTCodec(secret []byte, ttl time.Duration) (*JWTCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("signing secret must be at least %d bytes, got %d", MinSecretLength, len(secret))
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTCodec{secret: secret, ttl: ttl}, nil
}

// Encode creates a signed token for the given subject and role.
// Expiry is now + TTL. Pure computation, no I/O.
func (c *JWTCodec) Encode(subject, role string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":  subject,
		"role": role,
		"iat":  now.Unix(),
		"exp":  now.Add(c.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode validates the token structure and signature and returns its claims.
// Returns ErrExpiredToken, ErrBadSignature, or ErrMalformedToken on failure;
// never a partially trusted result. Decoding performs no storage lookups.
func (c *JWTCodec) Decode(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method is HS256
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	if !token.Valid {
		return nil, ErrMalformedToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMalformedToken
	}

	sub, ok := mapClaims["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: sub", ErrMissingClaim)
	}
	role, ok := mapClaims["role"].(string)
	if !ok || role == "" {
		return nil, fmt.Errorf("%w: role", ErrMissingClaim)
	}

	claims := &Claims{Subject: sub, Role: role}
	if iat, err := mapClaims.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}

// SubjectMatches decodes the token and reports whether its subject equals
// expected. An undecodable token never matches.
func SubjectMatches(codec TokenCodec, tokenString, expected string) bool {
	claims, err := codec.Decode(tokenString)
	if err != nil {
		return false
	}
	return claims.Subject == expected
}
