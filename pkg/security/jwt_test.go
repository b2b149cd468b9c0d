package security

import (
	"testing"
	"time"

	"salesdesk/pkg/config"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
)

func newIssuer(secret string) *TokenIssuer {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = secret
	cfg.Auth.Issuer = "salesdesk"
	cfg.Auth.TokenTTL = time.Hour
	return NewTokenIssuer(cfg)
}

func TestSignAndVerify(t *testing.T) {
	j := newIssuer("s3cret")

	token, exp, err := j.Sign(snowflake.ID(42), "manager")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := j.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "manager", claims.Role)

	id, err := claims.UserID()
	require.NoError(t, err)
	require.Equal(t, snowflake.ID(42), id)
}

func TestVerify_Rejects(t *testing.T) {
	j := newIssuer("s3cret")
	token, _, err := j.Sign(snowflake.ID(1), "admin")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := newIssuer("other").Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		late := newIssuer("s3cret")
		late.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := late.Verify(token)
		require.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := j.Verify("not-a-token")
		require.ErrorIs(t, err, ErrInvalidToken)
	})
}
