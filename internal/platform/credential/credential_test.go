package credential

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestIssueAndVerify(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	identity, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", identity)
}

func TestIssue_RequiresIdentity(t *testing.T) {
	_, err := NewIssuer(testSecret, time.Hour).Issue("")
	assert.Error(t, err)
}

func TestVerify_RejectsForgeries(t *testing.T) {
	issuer := NewIssuer(testSecret, time.Hour)
	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	otherToken, err := NewIssuer([]byte("fedcba9876543210fedcba9876543210"), time.Hour).Issue("admin")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not-a-credential"},
		{"bare identity", "admin"},
		{"truncated", token[:len(token)-4]},
		{"tampered", token[:len(token)-1] + flip(token[len(token)-1])},
		{"other secret", otherToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := issuer.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalid)
			assert.Empty(t, identity)
		})
	}
}

func flip(b byte) string {
	if b == 'A' {
		return "B"
	}
	return "A"
}
