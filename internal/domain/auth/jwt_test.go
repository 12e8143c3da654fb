package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *User {
	u := NewUser("clerk@storecore.local", "hash")
	u.FirstName = "Dana"
	u.LastName = "Reyes"
	u.Roles = []string{"clerk"}
	return u
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	user := testUser()

	token, expiresAt, err := svc.GenerateAccessToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	uc, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), uc.UserID)
	assert.Equal(t, user.Email, uc.Email)
	assert.Equal(t, "Dana Reyes", uc.Name)
	assert.Equal(t, []string{"clerk"}, uc.Roles)
	assert.False(t, uc.IsAdmin)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	token, _, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	other := NewJWTService(DefaultJWTConfig("another-secret"))
	_, err = other.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_Expired(t *testing.T) {
	cfg := DefaultJWTConfig("test-secret")
	cfg.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg)

	token, _, err := svc.GenerateAccessToken(testUser())
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
}

func TestUserLockout(t *testing.T) {
	u := testUser()
	require.NoError(t, u.CanLogin())

	for i := 0; i < 4; i++ {
		u.RecordFailedLogin(5, 15*time.Minute)
	}
	require.NoError(t, u.CanLogin(), "still under the attempt limit")

	u.RecordFailedLogin(5, 15*time.Minute)
	assert.True(t, u.IsLocked())
	require.Error(t, u.CanLogin())

	u.RecordSuccessfulLogin()
	assert.False(t, u.IsLocked())
	assert.Zero(t, u.FailedLoginAttempts)
	require.NoError(t, u.CanLogin())
	require.NotNil(t, u.LastLoginAt)
}

func TestUserFullName(t *testing.T) {
	u := NewUser("a@b.c", "hash")
	assert.Equal(t, "a@b.c", u.FullName())

	u.FirstName = "Dana"
	assert.Equal(t, "Dana", u.FullName())

	u.LastName = "Reyes"
	assert.Equal(t, "Dana Reyes", u.FullName())
}

func TestRefreshTokenValidity(t *testing.T) {
	tok := RefreshToken{ExpiresAt: time.Now().Add(time.Hour)}
	assert.True(t, tok.IsValid())

	revoked := time.Now()
	tok.RevokedAt = &revoked
	assert.False(t, tok.IsValid())

	expired := RefreshToken{ExpiresAt: time.Now().Add(-time.Hour)}
	assert.False(t, expired.IsValid())
}
