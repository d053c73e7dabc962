package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/franciscosanchezn/campus-canteen-api/internal/access"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRoles map[uint]access.Role

func (r staticRoles) ResolveRole(ctx context.Context, userID uint) (access.Role, error) {
	role, ok := r[userID]
	if !ok {
		return "", errors.New("user not found")
	}
	return role, nil
}

func TestIssueCarriesStoredRole(t *testing.T) {
	issuer := NewTokenIssuer([]byte("test-jwt-secret-key-32-characters"), time.Hour, staticRoles{7: access.Vendor})

	token, err := issuer.Issue(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, "vendor", token.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

	parsed, err := jwt.Parse(token.AccessToken, func(*jwt.Token) (interface{}, error) {
		return []byte("test-jwt-secret-key-32-characters"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "7", claims["uid"])
	assert.Equal(t, "vendor", claims["role"])
}

func TestIssueFailures(t *testing.T) {
	issuer := NewTokenIssuer([]byte("secret"), 0, staticRoles{})
	assert.Equal(t, DefaultTTL, issuer.TTL)

	_, err := issuer.Issue(context.Background(), 0)
	assert.Error(t, err)

	_, err = issuer.Issue(context.Background(), 3)
	assert.Error(t, err)

	empty := NewTokenIssuer(nil, time.Hour, staticRoles{1: access.Guest})
	_, err = empty.Issue(context.Background(), 1)
	assert.Error(t, err)
}
