package tokens

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaque(t *testing.T) {
	a, err := GenerateOpaque(32)
	require.NoError(t, err)
	b, err := GenerateOpaque(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 43) // 32 bytes base64url sin padding
	assert.NotContains(t, a, "=")
}

func TestGenerateCode_MinimumEntropy(t *testing.T) {
	code, err := GenerateCode(8) // below minimum, must be raised to 32 bytes
	require.NoError(t, err)

	raw, err := hex.DecodeString(code)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(raw), 32)
}
