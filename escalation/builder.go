package escalation

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/supportmesh/handoff"
)

// IDGenerator produces protocol identifiers. Implementations must be safe
// for concurrent use.
type IDGenerator interface {
	NewID(team string) string
}

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

// NewID implements IDGenerator.
func (UUIDGenerator) NewID(string) string { return uuid.NewString() }

// SequentialGenerator issues "{team}-{n}" identifiers from a counter shared
// by every team. Identifiers are unique within one generator.
type SequentialGenerator struct {
	counter atomic.Uint64
}

// NewID implements IDGenerator.
func (g *SequentialGenerator) NewID(team string) string {
	return fmt.Sprintf("%s-%d", team, g.counter.Add(1))
}

var processCounter = &SequentialGenerator{}

// ProcessSequentialGenerator returns the process-wide sequential generator.
func ProcessSequentialGenerator() IDGenerator { return processCounter }

// Options configures a Builder.
type Options struct {
	IDGenerator IDGenerator
	Clock       func() time.Time
	// DefaultTeam is assigned when Build receives an empty team.
	DefaultTeam string
}

// Builder validates analyses plus customer and issue context into Protocols.
type Builder struct {
	ids         IDGenerator
	clock       func() time.Time
	defaultTeam string
}

// NewBuilder creates a Builder issuing UUIDv4 ids.
func NewBuilder(optFns ...func(o *Options)) *Builder {
	opts := Options{
		IDGenerator: UUIDGenerator{},
		Clock:       time.Now,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.IDGenerator == nil {
		opts.IDGenerator = UUIDGenerator{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Builder{
		ids:         opts.IDGenerator,
		clock:       opts.Clock,
		defaultTeam: strings.TrimSpace(opts.DefaultTeam),
	}
}

// Build creates a pending Protocol. It fails with a *ValidationError when the
// analysis is invalid or does not call for escalation, when a business unit
// is unknown, or when no team is given and no default is configured.
func (b *Builder) Build(analysis Analysis, customer CustomerInfo, issue IssueDetails, assignedTeam string) (*Protocol, error) {
	if err := analysis.Validate(); err != nil {
		return nil, err
	}
	if !analysis.ShouldEscalate {
		return nil, invalid("should_escalate", false, "protocol requires an escalating analysis")
	}
	if customer.BusinessUnit != "" && !customer.BusinessUnit.Valid() {
		return nil, invalid("customer.business_unit", customer.BusinessUnit, "unknown business unit")
	}
	if issue.BusinessUnit != "" && !issue.BusinessUnit.Valid() {
		return nil, invalid("issue.business_unit", issue.BusinessUnit, "unknown business unit")
	}
	if issue.AttemptCount < 0 {
		return nil, invalid("issue.attempt_count", issue.AttemptCount, "must not be negative")
	}

	team := strings.TrimSpace(assignedTeam)
	if team == "" {
		team = b.defaultTeam
	}
	if team == "" {
		return nil, invalid("assigned_team", assignedTeam, "must not be empty")
	}

	analysis.Indicators = append([]string(nil), analysis.Indicators...)
	customer.Metadata = cloneMap(customer.Metadata)
	issue.AttemptedSolutions = append([]string(nil), issue.AttemptedSolutions...)
	issue.TransactionIDs = append([]string(nil), issue.TransactionIDs...)

	return &Protocol{
		ID:           b.ids.NewID(team),
		Timestamp:    b.clock().UTC(),
		Analysis:     analysis,
		Customer:     customer,
		Issue:        issue,
		AssignedTeam: team,
		Status:       StatusPending,
	}, nil
}

// BuildFromDetection maps a detector result into an Analysis and builds.
func (b *Builder) BuildFromDetection(res handoff.Result, customer CustomerInfo, issue IssueDetails, assignedTeam string) (*Protocol, error) {
	return b.Build(AnalysisFromDetection(res), customer, issue, assignedTeam)
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
