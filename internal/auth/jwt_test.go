package auth

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaneb74/senior-navigator-core/internal/domain"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestManager(t *testing.T, ttl time.Duration) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(domain.AuthConfig{Issuer: "senior-navigator", TokenTTL: ttl}, testLogger())
	require.NoError(t, err)
	return m
}

func TestIssueAndValidateToken(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, exp, err := m.IssueToken("sess-1", "caregiver")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.Equal(t, "sess-1", claims.Subject)
	assert.Equal(t, "caregiver", claims.Role)
	assert.Equal(t, "senior-navigator", claims.Issuer)
}

func TestIssueTokenDefaultsRole(t *testing.T) {
	m := newTestManager(t, time.Hour)

	token, _, err := m.IssueToken("sess-1", "")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "caregiver", claims.Role)
}

func TestIssueTokenRequiresSession(t *testing.T) {
	m := newTestManager(t, time.Hour)

	_, _, err := m.IssueToken("", "caregiver")
	assert.Error(t, err)
}

func TestValidateTokenRejectsForeignKey(t *testing.T) {
	issuer := newTestManager(t, time.Hour)
	validator := newTestManager(t, time.Hour)

	token, _, err := issuer.IssueToken("sess-1", "caregiver")
	require.NoError(t, err)

	_, err = validator.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := newTestManager(t, -time.Minute)

	token, _, err := m.IssueToken("sess-1", "caregiver")
	require.NoError(t, err)

	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	m := newTestManager(t, time.Hour)

	_, err := m.ValidateToken("not.a.token")
	assert.Error(t, err)
}
