package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminSignatureRoundTrip(t *testing.T) {
	GenerateSecretKey()

	payload := AdminPayload{Operation: "stats_recalculate", Date: "2024-03-01"}

	sig, err := GenerateAdminSignature(payload)
	require.NoError(t, err)
	require.NotEmpty(t, sig)

	assert.True(t, ValidateAdminSignature(payload, sig))
}

func TestAdminSignatureRejectsTampering(t *testing.T) {
	GenerateSecretKey()

	payload := AdminPayload{Operation: "stats_recalculate", Date: "2024-03-01"}
	sig, err := GenerateAdminSignature(payload)
	require.NoError(t, err)

	// 篡改操作名或日期都会使签名失效
	assert.False(t, ValidateAdminSignature(AdminPayload{Operation: "grant_forgiveness", Date: "2024-03-01"}, sig))
	assert.False(t, ValidateAdminSignature(AdminPayload{Operation: "stats_recalculate", Date: "2024-03-02"}, sig))

	assert.False(t, ValidateAdminSignature(payload, "not-base64!!"))
	assert.False(t, ValidateAdminSignature(payload, ""))
}

func TestSignatureInvalidAfterKeyRotation(t *testing.T) {
	GenerateSecretKey()
	payload := AdminPayload{Operation: "set_restriction_policy", Date: "2024-03-01"}
	sig, err := GenerateAdminSignature(payload)
	require.NoError(t, err)

	// 密钥轮换后旧签名全部失效
	GenerateSecretKey()
	assert.False(t, ValidateAdminSignature(payload, sig))
}
