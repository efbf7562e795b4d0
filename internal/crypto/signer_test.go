package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSecret() string {
	return base64.StdEncoding.EncodeToString([]byte("test-hmac-secret"))
}

func TestNewSignerRejectsBadSecret(t *testing.T) {
	_, err := NewSigner("not-base64!!!")
	assert.Error(t, err)

	_, err = NewSigner("")
	assert.Error(t, err)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	s, err := NewSigner(testSecret())
	require.NoError(t, err)

	sig := s.Sign("payload")
	assert.Len(t, sig, 64)
	assert.True(t, s.Verify("payload", sig))
	assert.False(t, s.Verify("tampered", sig))
	assert.False(t, s.Verify("payload", sig[:63]+"0"))
}

func TestSignaturesDifferAcrossSecrets(t *testing.T) {
	a, err := NewSigner(testSecret())
	require.NoError(t, err)
	b, err := NewSigner(base64.StdEncoding.EncodeToString([]byte("other-secret")))
	require.NoError(t, err)

	assert.NotEqual(t, a.Sign("payload"), b.Sign("payload"))
}

func TestAuditRecordSignature(t *testing.T) {
	s, err := NewSigner(testSecret())
	require.NoError(t, err)

	sig := s.SignAuditRecord("id-1", "RECONCILE", "07AAACT1234A1Z5", "2024-06-01T10:00:00Z", "SUCCESS")
	assert.True(t, s.VerifyAuditRecord("id-1", "RECONCILE", "07AAACT1234A1Z5", "2024-06-01T10:00:00Z", "SUCCESS", sig))
	assert.False(t, s.VerifyAuditRecord("id-2", "RECONCILE", "07AAACT1234A1Z5", "2024-06-01T10:00:00Z", "SUCCESS", sig))
}

func TestIRNHashDeterministic(t *testing.T) {
	a := IRNHash("27AAACS2222B1Z3", "TP002/2024/00001", "2024-03-10")
	b := IRNHash("27AAACS2222B1Z3", "TP002/2024/00001", "2024-03-10")
	c := IRNHash("27AAACS2222B1Z3", "TP002/2024/00002", "2024-03-10")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
