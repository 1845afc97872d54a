package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidName_Valid(t *testing.T) {
	valids := []string{
		"a",
		"ab",
		"read:profile",
		"write:follows",
		"a_b-c.d:scope2",
		mkLen("a", 63) + "b", // 64 chars, alnum at both ends
	}
	for _, v := range valids {
		if !ValidName(v) {
			t.Fatalf("expected valid: %q", v)
		}
	}
}

func TestValidName_Invalid(t *testing.T) {
	invalids := []string{
		"",               // empty
		":lead",          // starts with non-alnum
		"trail:",         // ends with non-alnum
		"bad space",      // space
		"UPPER",          // uppercase
		"semicolon;hack", // semicolon
		mkLen("a", 65),   // > 64 chars
	}
	for _, v := range invalids {
		if ValidName(v) {
			t.Fatalf("expected invalid: %q", v)
		}
	}
}

func TestRegistry_ValidateList(t *testing.T) {
	r := Default()

	valid, invalid := r.ValidateList([]string{"read:profile", "bogus", "write:likes", "read:profile"})
	assert.Equal(t, []string{"read:profile", "write:likes"}, valid)
	assert.Equal(t, []string{"bogus"}, invalid)

	valid, invalid = r.ValidateList(nil)
	assert.Empty(t, valid)
	assert.Empty(t, invalid)
}

func TestRegistry_DropsMalformedCatalogEntries(t *testing.T) {
	r := NewRegistry([]string{"good:scope", "BAD SCOPE", "good:scope"})
	require.Equal(t, []string{"good:scope"}, r.Names())
	assert.False(t, r.Known("BAD SCOPE"))
}

func TestIntersect(t *testing.T) {
	approved := []string{"read:profile", "read:likes"}

	got := Intersect([]string{"read:profile", "write:profile"}, approved)
	assert.Equal(t, []string{"read:profile"}, got)

	// Empty intersection: caller must reject with invalid_scope.
	got = Intersect([]string{"write:profile"}, approved)
	assert.Nil(t, got)

	got = Intersect(nil, approved)
	assert.Nil(t, got)
}

func TestSplitJoin(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Split(" a  b "))
	assert.Equal(t, "a b", Join([]string{"a", "b"}))
	assert.Empty(t, Split(""))
}

// mkLen builds a string of exactly n characters starting with prefix.
func mkLen(prefix string, total int) string {
	if total <= len(prefix) {
		return prefix[:total]
	}
	out := make([]byte, total)
	copy(out, prefix)
	for i := len(prefix); i < total; i++ {
		out[i] = 'a'
	}
	return string(out)
}
