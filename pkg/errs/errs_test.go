package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"invalid input", InvalidInput("profile is required"), KindInvalidInput},
		{"runtime", Runtime("connect failed", cause), KindRuntime},
		{"wrapped runtime", fmt.Errorf("ingest: %w", Runtimef(cause, "chunk %d", 1)), KindRuntime},
		{"plain error", cause, KindUnexpected},
		{"nil", nil, KindUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Runtime("upload failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "upload failed: boom", err.Error())
}

func TestMessageOf(t *testing.T) {
	assert.Equal(t, "Query string is required.", MessageOf(InvalidInput("Query string is required.")))
	assert.Equal(t, "request failed", MessageOf(Runtime("request failed", errors.New("boom"))))
	assert.Equal(t, "The profile 'ghost' does not exist.",
		MessageOf(fmt.Errorf("ingest: %w", Invalidf(errors.New("lookup: profile not found"), "The profile '%s' does not exist.", "ghost"))))
	assert.Equal(t, UnexpectedMessage, MessageOf(errors.New("secret detail")))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "invalid_input", KindInvalidInput.String())
	assert.Equal(t, "runtime", KindRuntime.String())
	assert.Equal(t, "unexpected", KindUnexpected.String())
}
