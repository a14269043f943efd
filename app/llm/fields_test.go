package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFields_SimpleLayout(t *testing.T) {
	out := "Verdict: FAKE\nConfidence: 87\nReport: The picture shows patterns typical of AI generation.\nIt should not be shared."

	fields := ParseFields(out, "Verdict", "Confidence", "Report")

	verdict, ok := fields.First("verdict")
	require.True(t, ok)
	assert.Equal(t, "FAKE", verdict)

	confidence, err := fields.Number("Confidence")
	require.NoError(t, err)
	assert.Equal(t, 87.0, confidence)

	report, _ := fields.First("REPORT")
	assert.Equal(t, "The picture shows patterns typical of AI generation.\nIt should not be shared.", report)
}

func TestParseFields_MarkdownAndRepeatedKeys(t *testing.T) {
	out := `Claim 1:
- **Verdict:** [TRUE]
- Confidence: 80%
- Explanation: Reported by https://reuters.com/a.

Claim 2:
- **Verdict:** MISLEADING
- Confidence: 60
- Explanation: Context is missing.`

	fields := ParseFields(out, "Verdict", "Confidence", "Explanation")

	assert.Equal(t, []string{"TRUE", "MISLEADING"}, fields.All("Verdict"))

	confidence, err := fields.Number("Confidence")
	require.NoError(t, err)
	assert.Equal(t, 80.0, confidence)
}

func TestFields_NumberErrors(t *testing.T) {
	fields := ParseFields("Verdict: REAL\nConfidence: high", "Verdict", "Confidence")

	_, err := fields.Number("Confidence")
	assert.ErrorIs(t, err, ErrMalformedOutput)

	_, err = fields.Number("Report")
	assert.ErrorIs(t, err, ErrMalformedOutput)
}

func TestParseFields_IgnoresUnknownKeys(t *testing.T) {
	fields := ParseFields("Note: hello\nSummary: world", "Verdict")

	_, ok := fields.First("Verdict")
	assert.False(t, ok)
	assert.Empty(t, fields)
}
