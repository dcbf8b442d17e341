package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/supportmesh/internal/util"
	"github.com/hupe1980/supportmesh/teamstate"
)

// TeamStateTool operations.
const (
	OpSyncState           = "sync_state"
	OpGetInsights         = "get_insights"
	OpFlagEscalation      = "flag_escalation"
	OpRecordInteraction   = "record_interaction"
	OpGetCrossTeamContext = "get_cross_team_context"
	OpCheckEscalations    = "check_escalations"
	OpResetState          = "reset_state"
)

var teamStateOps = []string{
	OpSyncState, OpGetInsights, OpFlagEscalation, OpRecordInteraction,
	OpGetCrossTeamContext, OpCheckEscalations, OpResetState,
}

type teamStateArgs struct {
	Operation string         `json:"operation" description:"The team state operation to perform" enum:"sync_state,get_insights,flag_escalation,record_interaction,get_cross_team_context,check_escalations,reset_state"`
	Team      string         `json:"team,omitempty" description:"Target team; defaults to the calling team"`
	State     map[string]any `json:"state,omitempty" description:"Full team state for sync_state"`
	FlagType  string         `json:"flag_type,omitempty" description:"Escalation flag type for flag_escalation"`
	Severity  string         `json:"severity,omitempty" description:"Flag severity (default: medium)" enum:"low,medium,high"`
	Details   any            `json:"details,omitempty" description:"Free form flag details"`
	Entry     map[string]any `json:"entry,omitempty" description:"Interaction entry for record_interaction"`
}

// TeamStateTool lets a specialist team read and write the orchestrator's
// view of team state.
type TeamStateTool struct {
	name        string
	description string
	team        string
	sync        *teamstate.Synchronizer
}

var _ Tool = (*TeamStateTool)(nil)

// NewTeamStateTool creates a tool bound to team, the default target of
// every team scoped operation.
func NewTeamStateTool(sync *teamstate.Synchronizer, team string) *TeamStateTool {
	return &TeamStateTool{
		name: "team_state",
		description: "Synchronizes this team's state with the orchestrator and reads other teams' insights. " +
			"Supports operations: " + strings.Join(teamStateOps, ", ") + ".",
		team: team,
		sync: sync,
	}
}

// Name returns the tool identifier.
func (t *TeamStateTool) Name() string { return t.name }

// Description returns the tool description.
func (t *TeamStateTool) Description() string { return t.description }

// Parameters returns the JSON schema for tool parameters.
func (t *TeamStateTool) Parameters() map[string]any {
	return util.CreateSchema(teamStateArgs{})
}

// Call implements the Tool interface.
func (t *TeamStateTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		return nil, err
	}

	operation, _ := args["operation"].(string)
	team, _ := args["team"].(string)
	if team == "" {
		team = t.team
	}

	switch operation {
	case OpSyncState:
		state, ok := args["state"].(map[string]any)
		if !ok {
			return nil, &ValidationError{Field: "state", Message: "state parameter is required for sync_state operation"}
		}
		rec, err := t.sync.SyncTeamState(team, state)
		if err != nil {
			return nil, t.wrap(err)
		}
		return recordResult(rec), nil
	case OpGetInsights:
		insights, err := t.sync.GetTeamInsights(team)
		if err != nil {
			return nil, t.wrap(err)
		}
		if insights == nil {
			return map[string]any{"team": team, "found": false}, nil
		}
		return map[string]any{"team": team, "found": true, "insights": insights}, nil
	case OpFlagEscalation:
		return t.flagEscalation(team, args)
	case OpRecordInteraction:
		entry, ok := args["entry"].(map[string]any)
		if !ok {
			return nil, &ValidationError{Field: "entry", Message: "entry parameter is required for record_interaction operation"}
		}
		rec, err := t.sync.RecordInteraction(team, entry)
		if err != nil {
			return nil, t.wrap(err)
		}
		return recordResult(rec), nil
	case OpGetCrossTeamContext:
		records, err := t.sync.GetCrossTeamContext()
		if err != nil {
			return nil, t.wrap(err)
		}
		return map[string]any{"teams": records, "count": len(records)}, nil
	case OpCheckEscalations:
		status, err := t.sync.CheckEscalationStatus()
		if err != nil {
			return nil, t.wrap(err)
		}
		return status, nil
	case OpResetState:
		rec, err := t.sync.ResetTeamState(team)
		if err != nil {
			return nil, t.wrap(err)
		}
		return recordResult(rec), nil
	default:
		return nil, &ValidationError{Field: "operation", Value: operation, Message: fmt.Sprintf("unknown operation: %s", operation)}
	}
}

func (t *TeamStateTool) flagEscalation(team string, args map[string]any) (any, error) {
	flagType, _ := args["flag_type"].(string)
	if flagType == "" {
		return nil, &ValidationError{Field: "flag_type", Message: "flag_type parameter is required for flag_escalation operation"}
	}
	severity, _ := args["severity"].(string)
	if severity == "" {
		severity = "medium"
	}

	rec, err := t.sync.FlagEscalation(team, flagType, severity, args["details"])
	if err != nil {
		return nil, t.wrap(err)
	}
	res := recordResult(rec)
	res["flag_type"] = flagType
	res["severity"] = severity
	return res, nil
}

func recordResult(rec teamstate.TeamStateRecord) map[string]any {
	return map[string]any{
		"team":         rec.TeamName,
		"sync_version": rec.SyncVersion,
		"last_updated": teamstate.FormatTimestamp(rec.LastUpdated),
		"success":      true,
	}
}

func (t *TeamStateTool) wrap(err error) error {
	code := CodeInternal
	switch {
	case errors.Is(err, teamstate.ErrInvalidArgument):
		code = CodeInvalidArgument
	case errors.Is(err, teamstate.ErrUnavailable):
		code = CodeUnavailable
	}
	te := NewToolError(t.name, err.Error(), code)
	te.Err = err
	return te
}
