package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/handoff"
	"github.com/hupe1980/supportmesh/internal/util"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/model"
)

// Analyzer turns a customer utterance into an Analysis.
type Analyzer interface {
	Analyze(ctx context.Context, message string) (Analysis, error)
}

// Detector is the handoff classification capability an analyzer relies on.
// *handoff.Detector satisfies it.
type Detector interface {
	Detect(message string) handoff.Result
}

var (
	_ Detector = (*handoff.Detector)(nil)
	_ Analyzer = (*RuleAnalyzer)(nil)
	_ Analyzer = (*ModelAnalyzer)(nil)
)

// AnalysisFromDetection maps a detector result onto an Analysis using fixed
// confidence, urgency and emotion per rule.
func AnalysisFromDetection(res handoff.Result) Analysis {
	if !res.NeedsHandoff {
		return Analysis{
			ShouldEscalate: false,
			Confidence:     0,
			Urgency:        UrgencyLow,
			Emotion:        EmotionNeutral,
			Reasoning:      "no handoff trigger matched",
		}
	}

	a := Analysis{ShouldEscalate: true, Indicators: []string{string(res.Reason)}}
	if res.Evidence != "" {
		a.Indicators = append(a.Indicators, res.Evidence)
	}

	switch res.Reason {
	case handoff.ReasonExplicitRequest:
		a.Reason, a.Confidence, a.Urgency, a.Emotion = ReasonExplicitRequest, 0.95, UrgencyMedium, EmotionNeutral
		a.Reasoning = fmt.Sprintf("customer explicitly asked for a human (%q)", res.Evidence)
	case handoff.ReasonFrustrationLanguage:
		a.Reason, a.Confidence, a.Urgency, a.Emotion = ReasonFrustrationDetected, 0.85, UrgencyHigh, EmotionFrustrated
		a.Reasoning = fmt.Sprintf("frustration language detected (%q)", res.Evidence)
	case handoff.ReasonCapsLockYelling:
		a.Reason, a.Confidence, a.Urgency, a.Emotion = ReasonFrustrationDetected, 0.75, UrgencyHigh, EmotionAngry
		a.Reasoning = "message written predominantly in capital letters"
	default:
		a.Reason, a.Confidence, a.Urgency, a.Emotion = ReasonFrustrationDetected, 0.5, UrgencyMedium, EmotionNeutral
		a.Reasoning = fmt.Sprintf("handoff requested by rule %q", res.Reason)
	}
	return a
}

// RuleAnalyzer is the deterministic, model-free Analyzer.
type RuleAnalyzer struct {
	detector Detector
}

// NewRuleAnalyzer creates a RuleAnalyzer. A nil detector uses the defaults.
func NewRuleAnalyzer(d Detector) *RuleAnalyzer {
	if d == nil {
		d = handoff.NewDetector()
	}
	return &RuleAnalyzer{detector: d}
}

// Analyze implements Analyzer. It never fails.
func (r *RuleAnalyzer) Analyze(_ context.Context, message string) (Analysis, error) {
	return AnalysisFromDetection(r.detector.Detect(message)), nil
}

// DefaultAnalysisInstructions is the instruction template rendered for the
// model. Available fields: .Reasons .Urgencies .Emotions.
const DefaultAnalysisInstructions = `You triage customer support conversations for a payments company.
Decide whether the latest customer message must be handed to a human operator.
Answer with a single JSON object and nothing else, using exactly these fields:
{"should_escalate": bool, "reason": string, "confidence": number between 0 and 1,
 "urgency": string, "emotion": string, "reasoning": string, "indicators": [string]}
Allowed reason values: {{join ", " .Reasons}} (use "" when should_escalate is false).
Allowed urgency values: {{join ", " .Urgencies}}.
Allowed emotion values: {{join ", " .Emotions}}.`

// ModelOptions configures a ModelAnalyzer.
type ModelOptions struct {
	// Instructions is a text/template rendered once per call.
	Instructions string
	// Detector short-circuits the model when a rule already fires.
	Detector Detector
	Logger   logging.Logger
}

// ModelAnalyzer asks a language model for a JSON analysis. Messages that
// already trigger a detector rule are answered by the rule mapping without
// a model call.
type ModelAnalyzer struct {
	model        model.Model
	rules        *RuleAnalyzer
	instructions string
	logger       logging.Logger
}

// NewModelAnalyzer creates a ModelAnalyzer backed by m.
func NewModelAnalyzer(m model.Model, optFns ...func(o *ModelOptions)) *ModelAnalyzer {
	opts := ModelOptions{
		Instructions: DefaultAnalysisInstructions,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &ModelAnalyzer{
		model:        m,
		rules:        NewRuleAnalyzer(opts.Detector),
		instructions: opts.Instructions,
		logger:       logging.OrNoOp(opts.Logger),
	}
}

// Analyze implements Analyzer.
func (a *ModelAnalyzer) Analyze(ctx context.Context, message string) (Analysis, error) {
	ruled, _ := a.rules.Analyze(ctx, message)
	if ruled.ShouldEscalate {
		return ruled, nil
	}

	instructions, err := util.RenderTemplate(a.instructions, map[string]any{
		"Reasons":   toAny(reasons),
		"Urgencies": toAny(urgencies),
		"Emotions":  toAny(emotions),
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("render analysis instructions: %w", err)
	}

	info := a.model.Info()
	a.logger.Debug("requesting model analysis", "provider", info.Provider, "model", info.Name)

	text, err := model.GenerateText(ctx, a.model, model.Request{
		Instructions: instructions,
		Contents:     []core.Content{core.NewTextContent("user", message)},
	})
	if err != nil {
		return Analysis{}, fmt.Errorf("model analysis: %w", err)
	}

	return ParseAnalysis(text)
}

// ParseAnalysis decodes a JSON analysis, tolerating surrounding Markdown
// code fences, and validates it.
func ParseAnalysis(text string) (Analysis, error) {
	var a Analysis
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &a); err != nil {
		return Analysis{}, err
	}
	return NewAnalysis(a)
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func toAny[T ~string](in []T) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
