package handoff

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Reason classifies why a message triggered a handoff.
type Reason string

const (
	// ReasonNone is the zero value reported when no rule matched.
	ReasonNone Reason = ""
	// ReasonExplicitRequest means the customer asked for a human.
	ReasonExplicitRequest Reason = "explicit_request"
	// ReasonFrustrationLanguage means the message contains profanity or frustration vocabulary.
	ReasonFrustrationLanguage Reason = "frustration_language"
	// ReasonCapsLockYelling means the message is predominantly uppercase.
	ReasonCapsLockYelling Reason = "caps_lock_yelling"
)

// Result is the outcome of Detect. Evidence holds the matched phrase or word
// and is empty for the caps lock rule and when nothing matched.
type Result struct {
	NeedsHandoff bool   `json:"needs_handoff"`
	Reason       Reason `json:"reason,omitempty"`
	Evidence     string `json:"evidence,omitempty"`
}

// DefaultHumanRequestPhrases is the curated list of explicit requests for a
// human operator.
var DefaultHumanRequestPhrases = []string{
	"falar com humano",
	"falar com um humano",
	"falar com atendente",
	"falar com um atendente",
	"falar com uma pessoa",
	"falar com alguém",
	"atendente humano",
	"atendimento humano",
	"quero um humano",
	"pessoa de verdade",
	"pessoa real",
	"transferir para atendente",
	"me transfere",
	"operador humano",
	"chamar o supervisor",
	"falar com o gerente",
	"speak to a human",
	"talk to a human",
	"human agent",
	"real person",
}

// DefaultFrustrationWords is the profanity / frustration lexicon.
var DefaultFrustrationWords = []string{
	"droga",
	"merda",
	"porra",
	"caralho",
	"porcaria",
	"lixo",
	"palhaçada",
	"ridículo",
	"absurdo",
	"vergonha",
	"inútil",
	"péssimo",
	"desgraça",
	"raiva",
	"cansei",
	"estou farto",
	"damn",
	"useless",
	"ridiculous",
}

const (
	// DefaultCapsMinLength is the length a message must exceed before the caps rule applies.
	DefaultCapsMinLength = 10
	// DefaultCapsRatio is the uppercase share above which a message counts as yelling.
	DefaultCapsRatio = 0.7
)

// Options configures a Detector.
type Options struct {
	HumanRequestPhrases []string
	FrustrationWords    []string
	// CapsMinLength: messages with length <= CapsMinLength never trigger the caps rule.
	CapsMinLength int
	// CapsRatio: uppercase runes divided by total message length must exceed it.
	CapsRatio float64
}

// Detector evaluates utterances against an immutable lexicon. It is safe for
// concurrent use.
type Detector struct {
	phrases       []string
	words         []string
	capsMinLength int
	capsRatio     float64
}

// NewDetector creates a detector with the default lexicon and thresholds,
// optionally overridden by optFns. Empty lists fall back to the defaults.
func NewDetector(optFns ...func(o *Options)) *Detector {
	opts := Options{
		HumanRequestPhrases: DefaultHumanRequestPhrases,
		FrustrationWords:    DefaultFrustrationWords,
		CapsMinLength:       DefaultCapsMinLength,
		CapsRatio:           DefaultCapsRatio,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if len(opts.HumanRequestPhrases) == 0 {
		opts.HumanRequestPhrases = DefaultHumanRequestPhrases
	}
	if len(opts.FrustrationWords) == 0 {
		opts.FrustrationWords = DefaultFrustrationWords
	}
	if opts.CapsRatio <= 0 {
		opts.CapsRatio = DefaultCapsRatio
	}
	if opts.CapsMinLength < 0 {
		opts.CapsMinLength = DefaultCapsMinLength
	}

	return &Detector{
		phrases:       normalizeLexicon(opts.HumanRequestPhrases),
		words:         normalizeLexicon(opts.FrustrationWords),
		capsMinLength: opts.CapsMinLength,
		capsRatio:     opts.CapsRatio,
	}
}

func normalizeLexicon(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Detect classifies message. The first matching rule wins:
//  1. explicit human request phrase
//  2. frustration lexicon word
//  3. caps lock yelling
func (d *Detector) Detect(message string) Result {
	lower := strings.ToLower(message)

	for _, phrase := range d.phrases {
		if strings.Contains(lower, phrase) {
			return Result{NeedsHandoff: true, Reason: ReasonExplicitRequest, Evidence: phrase}
		}
	}

	for _, word := range d.words {
		if strings.Contains(lower, word) {
			return Result{NeedsHandoff: true, Reason: ReasonFrustrationLanguage, Evidence: word}
		}
	}

	if d.isYelling(message) {
		return Result{NeedsHandoff: true, Reason: ReasonCapsLockYelling}
	}

	return Result{}
}

// isYelling divides by the total rune count, not the letter count, so
// spaces and punctuation dilute the ratio.
func (d *Detector) isYelling(message string) bool {
	total := utf8.RuneCountInString(message)
	if total <= d.capsMinLength {
		return false
	}
	upper := 0
	for _, r := range message {
		if unicode.IsUpper(r) {
			upper++
		}
	}
	return float64(upper)/float64(total) > d.capsRatio
}

// NeedsHandoff runs Detect with the default detector.
func NeedsHandoff(message string) Result {
	return defaultDetector.Detect(message)
}

var defaultDetector = NewDetector()
