package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fake credentials are assembled at runtime so secret scanners do not flag
// the test file itself.
func fakeVendorKey() string  { return "sk-" + "test0000000000000000000000" }
func fakeGitHubPAT() string  { return "ghp_" + "xxxxxxxxxxTESTONLYxxxxxxxxxx" }
func fakeBearerLine() string { return "Bearer " + "abcdefghijklmnopqrstuvwxyz123456" }

func TestRedactSecrets(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"vendor key", "key is " + fakeVendorKey(), "key is " + Redacted},
		{"github pat", "token " + fakeGitHubPAT() + " used", "token " + Redacted + " used"},
		{"bearer header", fakeBearerLine(), Redacted},
		{"key value pair", "api_key=supersecretvalue", Redacted},
		{"plain text untouched", "merged branch agent-1 into main", "merged branch agent-1 into main"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RedactSecrets(tt.input))
		})
	}
}

func TestIsSecretField(t *testing.T) {
	assert.True(t, IsSecretField("API_KEY"))
	assert.True(t, IsSecretField("github_token"))
	assert.False(t, IsSecretField("branch"))
	assert.False(t, IsSecretField("workflow_id"))
}

func TestSafeValue(t *testing.T) {
	assert.Equal(t, Redacted, SafeValue("password", "hunter2hunter2"))
	assert.Equal(t, "main", SafeValue("branch", "main"))
}

func TestRedactingWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewRedactingWriter(&buf)

	payload := "before " + fakeGitHubPAT() + " after"
	n, err := w.Write([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, "before "+Redacted+" after", buf.String())
}
