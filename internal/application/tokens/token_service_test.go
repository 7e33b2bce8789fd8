package tokens

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/whiskypay/gateway/pkg/config"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	svc := New(config.JWTConfig{Secret: "s3cret", TokenTTL: time.Minute})

	token, err := svc.Issue("sess-1")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	sessionID, err := svc.Verify(token)
	assert.NoError(t, err)
	assert.Equal(t, "sess-1", sessionID)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := New(config.JWTConfig{Secret: "right", TokenTTL: time.Minute})
	verifier := New(config.JWTConfig{Secret: "wrong", TokenTTL: time.Minute})

	token, err := issuer.Issue("sess-1")
	assert.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	svc := New(config.JWTConfig{Secret: "s3cret", TokenTTL: -time.Minute})

	token, err := svc.Issue("sess-1")
	assert.NoError(t, err)

	_, err = svc.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbage(t *testing.T) {
	svc := New(config.JWTConfig{Secret: "s3cret", TokenTTL: time.Minute})

	_, err := svc.Verify("not.a.jwt")
	assert.Error(t, err)
}
