package escalation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/handoff"
	"github.com/hupe1980/supportmesh/model"
)

func TestAnalysisFromDetection(t *testing.T) {
	tests := []struct {
		message    string
		escalate   bool
		reason     Reason
		confidence float64
		urgency    Urgency
		emotion    Emotion
	}{
		{"quero falar com humano", true, ReasonExplicitRequest, 0.95, UrgencyMedium, EmotionNeutral},
		{"isso é uma droga", true, ReasonFrustrationDetected, 0.85, UrgencyHigh, EmotionFrustrated},
		{"ISSO ESTÁ HORRÍVEL E NÃO FUNCIONA", true, ReasonFrustrationDetected, 0.75, UrgencyHigh, EmotionAngry},
		{"Qual o limite do meu cartão?", false, "", 0, UrgencyLow, EmotionNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			a := AnalysisFromDetection(handoff.NeedsHandoff(tt.message))
			assert.Equal(t, tt.escalate, a.ShouldEscalate)
			assert.Equal(t, tt.reason, a.Reason)
			assert.InDelta(t, tt.confidence, a.Confidence, 1e-9)
			assert.Equal(t, tt.urgency, a.Urgency)
			assert.Equal(t, tt.emotion, a.Emotion)
			assert.NoError(t, a.Validate())
		})
	}
}

func TestRuleAnalyzer(t *testing.T) {
	a, err := NewRuleAnalyzer(nil).Analyze(context.Background(), "quero falar com humano")
	require.NoError(t, err)
	assert.Equal(t, []string{"explicit_request", "falar com humano"}, a.Indicators)
}

func TestModelAnalyzer_ParsesFencedJSON(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.AddResponse("meu pix sumiu e ninguém resolve", "```json\n"+
		`{"should_escalate":true,"reason":"multiple_attempts","confidence":0.8,"urgency":"high","emotion":"frustrated","reasoning":"third contact","indicators":["repeat contact"]}`+
		"\n```")

	a, err := NewModelAnalyzer(m).Analyze(context.Background(), "meu pix sumiu e ninguém resolve")
	require.NoError(t, err)
	assert.Equal(t, ReasonMultipleAttempts, a.Reason)
	assert.Equal(t, UrgencyHigh, a.Urgency)
	assert.Equal(t, []string{"repeat contact"}, a.Indicators)
	assert.Equal(t, 1, m.Calls())
}

func TestModelAnalyzer_RuleShortCircuit(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	a, err := NewModelAnalyzer(m).Analyze(context.Background(), "quero falar com humano")
	require.NoError(t, err)
	assert.Equal(t, ReasonExplicitRequest, a.Reason)
	assert.Equal(t, 0, m.Calls())
}

func TestModelAnalyzer_InvalidModelOutput(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.AddResponse("oi", `{"should_escalate":true,"reason":"complex_issue","confidence":1.5,"urgency":"low","emotion":"neutral"}`)
	m.AddResponse("tchau", `{"urgency":"someday"}`)

	an := NewModelAnalyzer(m)
	_, err := an.Analyze(context.Background(), "oi")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = an.Analyze(context.Background(), "tchau")
	assert.ErrorIs(t, err, ErrInvalid)

	// default mock output is not JSON
	_, err = an.Analyze(context.Background(), "anything else")
	assert.Error(t, err)
}

func TestModelAnalyzer_ModelFailure(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	boom := errors.New("rate limited")
	m.FailWith(boom)
	_, err := NewModelAnalyzer(m).Analyze(context.Background(), "preciso de ajuda com meu extrato")
	assert.ErrorIs(t, err, boom)
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1}  "))
}
