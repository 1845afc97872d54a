package keyhash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Low-cost params so tests don't burn CPU.
var testParams = Params{Memory: 8 * 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestFingerprint_Deterministic(t *testing.T) {
	a := Fingerprint("secret-token-value")
	b := Fingerprint("secret-token-value")
	c := Fingerprint("secret-token-valuf")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "=") // base64url sin padding
	assert.Len(t, a, 43)          // 32 bytes -> 43 chars
}

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := Hash(testParams, "s3cret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(phc, "$argon2id$v=19$"))

	assert.True(t, Verify("s3cret", phc))
	assert.False(t, Verify("s3cret-wrong", phc))
	assert.False(t, Verify("", phc))
}

func TestHash_SaltedPerCall(t *testing.T) {
	a, err := Hash(testParams, "same-secret")
	require.NoError(t, err)
	b, err := Hash(testParams, "same-secret")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, Verify("same-secret", a))
	assert.True(t, Verify("same-secret", b))
}

func TestHash_EmptySecret(t *testing.T) {
	_, err := Hash(testParams, "")
	assert.Error(t, err)
}

func TestVerify_MalformedPHC(t *testing.T) {
	cases := []string{
		"",
		"not-a-phc",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdA$ZGs",        // wrong variant
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdA$ZGs",       // wrong version
		"$argon2id$v=19$m=8192,t=1$c2FsdA$ZGs",           // missing p
		"$argon2id$v=19$m=8192,t=1,p=1$!!notb64!!$ZGs",   // bad salt
		"$argon2id$v=19$m=8192,t=1,p=1$c2FsdA$",          // empty dk
		"$argon2id$v=19$m=8192,t=1,p=999$c2FsdA$ZGs",     // p out of range
		"$argon2id$v=19$m=8192,t=1,p=1,x=2$c2FsdA$ZGs",   // unknown param
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$ZGs",          // zero cost
	}
	for _, phc := range cases {
		if Verify("anything", phc) {
			t.Fatalf("expected verify=false for %q", phc)
		}
	}
}
