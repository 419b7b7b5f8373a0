package security

import (
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/peertalk/peertalk/db"
	"github.com/peertalk/peertalk/util"
	"github.com/stretchr/testify/require"
)

var (
	config  *util.Config
	service *JWTService
)

func TestMain(m *testing.M) {
	config = &util.Config{
		SecretKey:              []byte("test-secret-key"),
		TokenExpiration:        time.Hour,
		RefreshTokenExpiration: time.Hour * 24,
	}
	service = NewJWTService(config)
	os.Exit(m.Run())
}

func TestToken(t *testing.T) {
	// Create test data
	id := uint(rand.Intn(1000))
	role := []db.Role{db.RoleUser, db.RoleCounselor}[rand.Intn(2)]
	tokenType := []TokenType{AccessToken, RefreshToken}[rand.Intn(2)]
	version := rand.Intn(10)

	// Create token
	token, err := service.CreateToken(id, role, tokenType, version)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// Verify token
	result, err := service.VerifyToken(token)
	require.NoError(t, err)
	require.NotEmpty(t, result)

	// Compare the test data with the extract claims
	require.Equal(t, id, result.ID)
	require.Equal(t, role, result.Role)
	require.Equal(t, tokenType, result.TokenType)
	require.Equal(t, version, result.Version)
}

func TestVerifyTokenRejectsTampering(t *testing.T) {
	token, err := service.CreateToken(1, db.RoleUser, AccessToken, 1)
	require.NoError(t, err)

	_, err = service.VerifyToken(token + "x")
	require.Error(t, err)

	// A token signed with another key never verifies
	other := NewJWTService(&util.Config{
		SecretKey:       []byte("another-secret-key"),
		TokenExpiration: time.Hour,
	})
	foreign, err := other.CreateToken(1, db.RoleUser, AccessToken, 1)
	require.NoError(t, err)

	_, err = service.VerifyToken(foreign)
	require.Error(t, err)
}

func TestCreateTokenRejectsUnknownType(t *testing.T) {
	_, err := service.CreateToken(1, db.RoleUser, TokenType("session-token"), 1)
	require.Error(t, err)
}
