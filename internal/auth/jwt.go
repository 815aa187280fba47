package auth

import (
	"errors"
	"fmt"
	"time"

	"complaintdesk/internal/config"
	"complaintdesk/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims carries only the user id; role and branch are resolved from the
// store on every request so that changes apply without re-login.
type Claims struct {
	UserID    uuid.UUID `json:"user_id"`
	TokenType TokenType `json:"typ"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

type Tokens struct {
	secret        []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

func NewTokens(cfg config.JWTConfig) *Tokens {
	return &Tokens{
		secret:        []byte(cfg.Secret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
		issuer:        cfg.Issuer,
		now:           time.Now,
	}
}

func (t *Tokens) Issue(user *models.User) (TokenPair, error) {
	access, err := t.sign(user.ID, TokenAccess, t.accessTTL, t.secret)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := t.sign(user.ID, TokenRefresh, t.refreshTTL, t.refreshSecret)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (t *Tokens) IssueAccess(userID uuid.UUID) (string, error) {
	return t.sign(userID, TokenAccess, t.accessTTL, t.secret)
}

func (t *Tokens) sign(userID uuid.UUID, typ TokenType, ttl time.Duration, secret []byte) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID:    userID,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (t *Tokens) ParseAccess(token string) (*Claims, error) {
	return t.parse(token, TokenAccess, t.secret)
}

func (t *Tokens) ParseRefresh(token string) (*Claims, error) {
	return t.parse(token, TokenRefresh, t.refreshSecret)
}

var errWrongTokenType = errors.New("unexpected token type")

func (t *Tokens) parse(token string, want TokenType, secret []byte) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithIssuer(t.issuer),
		jwt.WithTimeFunc(t.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.TokenType != want {
		return nil, errWrongTokenType
	}
	return claims, nil
}
