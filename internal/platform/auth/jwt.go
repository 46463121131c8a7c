package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const defaultTokenTTL = 12 * time.Hour

var (
	// ErrTokenExpired signals that the provided bearer token has expired.
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid signals that the provided bearer token is invalid for other reasons.
	ErrTokenInvalid = errors.New("auth: token invalid")
	// ErrBadCredentials signals a failed login attempt.
	ErrBadCredentials = errors.New("auth: bad credentials")
)

// adminClaims is the JWT payload minted for back-office sessions.
type adminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenAuthority issues and verifies HS256 bearer tokens for the back office
// and checks the configured admin credentials.
type TokenAuthority struct {
	signingKey   []byte
	issuer       string
	tokenTTL     time.Duration
	username     string
	passwordHash []byte
	clock        func() time.Time
}

// TokenAuthorityConfig configures the TokenAuthority. PasswordHash is the
// hex-encoded SHA-256 digest of the admin password.
type TokenAuthorityConfig struct {
	SigningKey   string
	Issuer       string
	TokenTTL     time.Duration
	Username     string
	PasswordHash string
	Clock        func() time.Time
}

// NewTokenAuthority validates the configuration and builds the authority.
func NewTokenAuthority(cfg TokenAuthorityConfig) (*TokenAuthority, error) {
	key := strings.TrimSpace(cfg.SigningKey)
	if len(key) < 32 {
		return nil, errors.New("auth: signing key must be at least 32 bytes")
	}
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		return nil, errors.New("auth: admin username is required")
	}
	passwordHash, err := hex.DecodeString(strings.TrimSpace(cfg.PasswordHash))
	if err != nil || len(passwordHash) != sha256.Size {
		return nil, errors.New("auth: password hash must be a hex-encoded sha256 digest")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "velopix"
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenAuthority{
		signingKey:   []byte(key),
		issuer:       issuer,
		tokenTTL:     ttl,
		username:     username,
		passwordHash: passwordHash,
		clock:        func() time.Time { return clock().UTC() },
	}, nil
}

// Login checks the credentials and mints a bearer token on success.
func (a *TokenAuthority) Login(username string, password string) (string, time.Time, error) {
	if a == nil {
		return "", time.Time{}, ErrBadCredentials
	}
	sum := sha256.Sum256([]byte(password))
	userMatch := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(a.username))
	passMatch := subtle.ConstantTimeCompare(sum[:], a.passwordHash)
	if userMatch&passMatch != 1 {
		return "", time.Time{}, ErrBadCredentials
	}

	now := a.clock()
	expiresAt := now.Add(a.tokenTTL)
	claims := adminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   a.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify parses and validates a bearer token, returning the identity it carries.
func (a *TokenAuthority) Verify(tokenString string) (*Identity, error) {
	if a == nil {
		return nil, ErrTokenInvalid
	}
	claims := &adminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Issuer != a.issuer {
		return nil, ErrTokenInvalid
	}
	return &Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// HashPassword returns the hex-encoded SHA-256 digest expected by the
// configuration, for provisioning tooling.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
