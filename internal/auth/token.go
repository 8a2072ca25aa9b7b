package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClass selects which secret and lifetime a token is issued or verified with.
type TokenClass int

const (
	// SessionToken authenticates requests to protected routes.
	SessionToken TokenClass = iota
	// ResetToken authorizes a password replacement. It is mailed, so it never works as a session.
	ResetToken
)

func (c TokenClass) String() string {
	switch c {
	case SessionToken:
		return "session"
	case ResetToken:
		return "reset"
	default:
		return fmt.Sprintf("TokenClass(%d)", int(c))
	}
}

// Default lifetimes.
const (
	DefaultSessionTTL = time.Hour
	DefaultResetTTL   = 10 * time.Minute
)

// ErrInvalidToken covers every reason a token is rejected: expiry, signature,
// format, algorithm or a missing account id.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of both token classes.
type Claims struct {
	AccountID string `json:"id"`
	jwt.RegisteredClaims
}

// TokenConfig holds the secret and lifetime for each token class.
type TokenConfig struct {
	SessionSecret []byte
	SessionTTL    time.Duration
	ResetSecret   []byte
	ResetTTL      time.Duration
}

// Tokens issues and verifies HS256 tokens.
type Tokens struct {
	session tokenKey
	reset   tokenKey
	now     func() time.Time
}

type tokenKey struct {
	secret []byte
	ttl    time.Duration
}

// NewTokens validates cfg and returns an issuer. The two secrets must be set and distinct.
func NewTokens(cfg TokenConfig) (*Tokens, error) {
	if len(cfg.SessionSecret) == 0 || len(cfg.ResetSecret) == 0 {
		return nil, errors.New("token secrets must not be empty")
	}
	if string(cfg.SessionSecret) == string(cfg.ResetSecret) {
		return nil, errors.New("session and reset secrets must differ")
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.ResetTTL == 0 {
		cfg.ResetTTL = DefaultResetTTL
	}
	if cfg.SessionTTL < 0 || cfg.ResetTTL < 0 {
		return nil, errors.New("token lifetimes must be positive")
	}
	return &Tokens{
		session: tokenKey{secret: cfg.SessionSecret, ttl: cfg.SessionTTL},
		reset:   tokenKey{secret: cfg.ResetSecret, ttl: cfg.ResetTTL},
		now:     time.Now,
	}, nil
}

// SetClock replaces the time source used for issuing and verifying.
func (t *Tokens) SetClock(now func() time.Time) {
	t.now = now
}

func (t *Tokens) key(class TokenClass) (tokenKey, error) {
	switch class {
	case SessionToken:
		return t.session, nil
	case ResetToken:
		return t.reset, nil
	default:
		return tokenKey{}, fmt.Errorf("unknown token class %s", class)
	}
}

// IssueSession signs a session token for accountID.
func (t *Tokens) IssueSession(accountID string) (string, error) {
	return t.Issue(accountID, SessionToken)
}

// IssueReset signs a password-reset token for accountID.
func (t *Tokens) IssueReset(accountID string) (string, error) {
	return t.Issue(accountID, ResetToken)
}

// Issue signs a token of the given class for accountID.
func (t *Tokens) Issue(accountID string, class TokenClass) (string, error) {
	k, err := t.key(class)
	if err != nil {
		return "", err
	}
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
		},
	})
	return token.SignedString(k.secret)
}

// Verify checks the signature and expiry of tokenString against the secret of class.
// Any failure is reported as ErrInvalidToken.
func (t *Tokens) Verify(tokenString string, class TokenClass) (*Claims, error) {
	k, err := t.key(class)
	if err != nil {
		return nil, err
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return k.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil || !token.Valid || claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
