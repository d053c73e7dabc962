// Package auth issues the JWT access tokens checked by the middleware.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

func init() {
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
}

// DefaultTTL is the lifetime of an access token
const DefaultTTL = 24 * time.Hour

// RoleResolver looks up the stored role of a user
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID uint) (access.Role, error)
}

// TokenIssuer signs access tokens carrying the uid and role claims
type TokenIssuer struct {
	SignedKey    []byte
	SignedMethod jwt.SigningMethod
	TTL          time.Duration
	roles        RoleResolver
}

// NewTokenIssuer creates an HS256 issuer
func NewTokenIssuer(key []byte, ttl time.Duration, roles RoleResolver) *TokenIssuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenIssuer{
		SignedKey:    key,
		SignedMethod: jwt.SigningMethodHS256,
		TTL:          ttl,
		roles:        roles,
	}
}

// Token is a signed access token and its expiry
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        string    `json:"role"`
}

// Issue signs a token for userID. The role is read from the database so a
// client can never choose its own.
func (g *TokenIssuer) Issue(ctx context.Context, userID uint) (*Token, error) {
	if userID == 0 {
		return nil, errors.New("cannot generate token: no user ID available")
	}
	if len(g.SignedKey) == 0 {
		return nil, errors.New("cannot generate token: signing key is empty")
	}

	role, err := g.roles.ResolveRole(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user role: %w", err)
	}

	now := time.Now()
	expires := now.Add(g.TTL)
	claims := jwt.MapClaims{
		"uid":  strconv.FormatUint(uint64(userID), 10),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expires.Unix(),
	}
	signed, err := jwt.NewWithClaims(g.SignedMethod, claims).SignedString(g.SignedKey)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{"user_id": userID, "role": role}).Debug("Access token issued")
	return &Token{AccessToken: signed, TokenType: "Bearer", ExpiresAt: expires, Role: string(role)}, nil
}
