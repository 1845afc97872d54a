package rate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEndpoint(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"/oauth/token", "/oauth/token"},
		{"POST /oauth/token", "/oauth/token"},
		{"GET /oauth/authorize?client_id=x&scope=y", "/oauth/authorize"},
		{"/oauth//token///", "/oauth/token"},
		{"/oauth/token/", "/oauth/token"},
		{"/oauth/token#frag", "/oauth/token"},
		{"  /oauth/token  ", "/oauth/token"},
		{"/", "/"},
		{"", "/"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeEndpoint(c.in), "input %q", c.in)
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "app1:user1:/oauth/token", Key("app1", "user1", "POST /oauth/token"))
	// Sin usuario: grants client_credentials comparten bucket por application.
	assert.Equal(t, "app1:client-credentials:/oauth/token", Key("app1", "", "/oauth/token"))
}

func TestNormalizeEndpoint_SameRouteSameKey(t *testing.T) {
	a := Key("app", "u", "POST /v1/likes?id=9")
	b := Key("app", "u", "/v1/likes/")
	assert.Equal(t, a, b)
}
