package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		raw  string
		want Verdict
	}{
		{"YES", VerdictAnswerable},
		{"yes", VerdictAnswerable},
		{" Yes. ", VerdictAnswerable},
		{"NO", VerdictEscalate},
		{"no!", VerdictEscalate},
		{"\"NO\"", VerdictEscalate},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseVerdict(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVerdictRejectsUnknownTokens(t *testing.T) {
	// The original heuristic treated any reply containing "NO" as an
	// escalation; the parser must not, e.g. "NOT SURE" or chatty answers.
	for _, raw := range []string{"", "MAYBE", "NOT SURE", "YES, I can answer that", "I don't know"} {
		t.Run(raw, func(t *testing.T) {
			got, err := ParseVerdict(raw)
			assert.ErrorIs(t, err, ErrUnavailable)
			assert.Equal(t, VerdictUnknown, got)
		})
	}
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "answerable", VerdictAnswerable.String())
	assert.Equal(t, "escalate", VerdictEscalate.String())
	assert.Equal(t, "unknown", VerdictUnknown.String())
}

func TestNewOpenAIClientValidation(t *testing.T) {
	_, err := NewOpenAIClient(Config{Model: "gpt-4o-mini"}, nil)
	assert.Error(t, err)

	_, err = NewOpenAIClient(Config{APIKey: "key"}, nil)
	assert.Error(t, err)

	client, err := NewOpenAIClient(Config{APIKey: "key", Model: "gpt-4o-mini"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, client)
}
