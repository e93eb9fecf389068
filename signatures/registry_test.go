package signatures

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHash(t *testing.T) {
	require.NoError(t, ValidateHash("0xa9059cbb"))
	require.NoError(t, ValidateHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"))
	require.Error(t, ValidateHash("a9059cbb"))
	require.Error(t, ValidateHash("0x1234"))
}

func TestValidateSearchPattern(t *testing.T) {
	require.NoError(t, ValidateSearchPattern("transfer(*)"))
	require.NoError(t, ValidateSearchPattern("transfer?(address,uint256)"))
	require.Error(t, ValidateSearchPattern(""))
	require.Error(t, ValidateSearchPattern("transfer(address); DROP TABLE signatures"))
}

func TestValidateSignatureText(t *testing.T) {
	require.NoError(t, ValidateSignatureText("transfer(address,uint256)"))
	require.NoError(t, ValidateSignatureText("Transfer(address,address,uint256)"))
	require.NoError(t, ValidateSignatureText("InsufficientBalance()"))
	require.Error(t, ValidateSignatureText("transfer(address,uint256"))
	require.Error(t, ValidateSignatureText("0bad(address)"))
	require.Error(t, ValidateSignatureText("transfer(notatype)"))
}

func TestToSQLPattern(t *testing.T) {
	assert.Equal(t, "transfer(%)", toSQLPattern("transfer(*)"))
	assert.Equal(t, `a\_b`, toSQLPattern("a_b"))
	assert.Equal(t, "transfer(_ddress)", toSQLPattern("transfer(?ddress)"))
}

func TestRegistryIsCanonicalFallsBackToSet(t *testing.T) {
	r := NewRegistry(WithCanonicalSignatures([]string{"transfer(address,uint256)"}))
	assert.True(t, r.isCanonical("0xa9059cbb", "transfer(address,uint256)"))
	assert.False(t, r.isCanonical("0xa9059cbb", "unknown(uint256)"))
}

func TestRegistryIsCanonicalWithNoSourceConfigured(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.isCanonical("0xa9059cbb", "anything(uint256)"))
}
