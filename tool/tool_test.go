package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/internal/util"
	"github.com/hupe1980/supportmesh/teamstate"
)

// -------------------- Schema & Validation Tests --------------------

type sampleSchema struct {
	A string `json:"a" description:"Field A"`
	B *int   `json:"b" description:"Optional pointer field"`
	C int    `json:"c,omitempty" description:"Omit empty field"`
	D any    `json:"d,omitempty"`
}

func TestCreateSchema(t *testing.T) {
	schema := util.CreateSchema(sampleSchema{})
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	assert.NotContains(t, props["d"], "type")
	assert.ElementsMatch(t, []string{"a"}, schema["required"])
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		// JSON decoded schemas carry []any
		"required": []any{"x"},
	}

	assert.NoError(t, util.ValidateParameters(map[string]any{"x": 5}, schema))

	err := util.ValidateParameters(map[string]any{}, schema)
	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "x", vErr.Field)

	err = util.ValidateParameters(map[string]any{"x": "not-int"}, schema)
	require.True(t, errors.As(err, &vErr))
	assert.Contains(t, vErr.Message, "expected type integer")

	schema["required"] = []string{"x"}
	assert.Error(t, util.ValidateParameters(map[string]any{}, schema))

	schema["properties"].(map[string]any)["level"] = map[string]any{"type": "string", "enum": []any{"low", "high"}}
	assert.NoError(t, util.ValidateParameters(map[string]any{"x": 1, "level": "low"}, schema))
	err = util.ValidateParameters(map[string]any{"x": 1, "level": "mid"}, schema)
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "level", vErr.Field)
	assert.Contains(t, vErr.Message, "low, high")
}

// -------------------- TeamStateTool Tests --------------------

func newTool() (*TeamStateTool, *teamstate.Synchronizer) {
	s := teamstate.NewSynchronizer()
	return NewTeamStateTool(s, "cards"), s
}

func call(t *testing.T, tl Tool, args map[string]any) map[string]any {
	t.Helper()
	out, err := tl.Call(context.Background(), args)
	require.NoError(t, err)
	res, ok := out.(map[string]any)
	require.True(t, ok, "unexpected result type %T", out)
	return res
}

func TestTeamStateTool_Metadata(t *testing.T) {
	tl, _ := newTool()
	assert.Equal(t, "team_state", tl.Name())
	assert.Contains(t, tl.Description(), "sync_state")

	props := tl.Parameters()["properties"].(map[string]any)
	assert.Equal(t, teamStateOps, props["operation"].(map[string]any)["enum"])
	assert.Equal(t, "object", props["state"].(map[string]any)["type"])
}

func TestTeamStateTool_SyncAndInsights(t *testing.T) {
	tl, s := newTool()

	res := call(t, tl, map[string]any{"operation": OpSyncState, "state": map[string]any{"research_findings": []any{"limit"}}})
	assert.Equal(t, int64(1), res["sync_version"])
	assert.Equal(t, "cards", res["team"])

	res = call(t, tl, map[string]any{"operation": OpGetInsights})
	assert.Equal(t, true, res["found"])
	insights := res["insights"].(*teamstate.TeamInsights)
	assert.Equal(t, []any{"limit"}, insights.ResearchFindings)

	res = call(t, tl, map[string]any{"operation": OpGetInsights, "team": "pix"})
	assert.Equal(t, false, res["found"])

	res = call(t, tl, map[string]any{"operation": OpResetState})
	assert.Equal(t, int64(2), res["sync_version"])

	snap, err := s.GetCrossTeamContext()
	require.NoError(t, err)
	assert.Equal(t, teamstate.DefaultState(), snap["cards"].State)
}

func TestTeamStateTool_FlagAndCheck(t *testing.T) {
	tl, _ := newTool()

	res := call(t, tl, map[string]any{"operation": OpFlagEscalation, "flag_type": "fraud", "severity": "high", "details": map[string]any{"tx": "t-1"}})
	assert.Equal(t, "high", res["severity"])

	res = call(t, tl, map[string]any{"operation": OpFlagEscalation, "flag_type": "delay", "team": "pix"})
	assert.Equal(t, "medium", res["severity"])
	assert.Equal(t, "pix", res["team"])

	out, err := tl.Call(context.Background(), map[string]any{"operation": OpCheckEscalations})
	require.NoError(t, err)
	status := out.(teamstate.EscalationStatus)
	assert.True(t, status.HasEscalations)
	assert.Equal(t, 2, status.EscalationCount)
	require.Len(t, status.CriticalFlags, 1)
	assert.Equal(t, "cards", status.CriticalFlags[0].Team)

	res = call(t, tl, map[string]any{"operation": OpGetCrossTeamContext})
	assert.Equal(t, 2, res["count"])
}

func TestTeamStateTool_RecordInteraction(t *testing.T) {
	tl, s := newTool()
	call(t, tl, map[string]any{"operation": OpRecordInteraction, "entry": map[string]any{"action": "answered"}})

	journey, err := s.GetCustomerJourney()
	require.NoError(t, err)
	require.Len(t, journey, 1)
	assert.Equal(t, "answered", journey[0].Data["action"])
}

func TestTeamStateTool_Errors(t *testing.T) {
	tl, _ := newTool()
	ctx := context.Background()

	tests := []struct {
		name  string
		args  map[string]any
		field string
	}{
		{"missing operation", map[string]any{}, "operation"},
		{"unknown operation", map[string]any{"operation": "drop_tables"}, "operation"},
		{"state wrong type", map[string]any{"operation": OpSyncState, "state": "x"}, "state"},
		{"missing state", map[string]any{"operation": OpSyncState}, "state"},
		{"missing flag type", map[string]any{"operation": OpFlagEscalation}, "flag_type"},
		{"bad severity", map[string]any{"operation": OpFlagEscalation, "flag_type": "x", "severity": "apocalyptic"}, "severity"},
		{"missing entry", map[string]any{"operation": OpRecordInteraction}, "entry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tl.Call(ctx, tt.args)
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	unbound := NewTeamStateTool(teamstate.NewSynchronizer(), "")
	_, err := unbound.Call(ctx, map[string]any{"operation": OpResetState})
	var tErr *ToolError
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, CodeInvalidArgument, tErr.Code)
	assert.ErrorIs(t, err, teamstate.ErrInvalidArgument)

	noStore := NewTeamStateTool(teamstate.NewSynchronizer(func(o *teamstate.Options) { o.Store = nil }), "cards")
	_, err = noStore.Call(ctx, map[string]any{"operation": OpCheckEscalations})
	require.True(t, errors.As(err, &tErr))
	assert.Equal(t, CodeUnavailable, tErr.Code)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = tl.Call(cancelled, map[string]any{"operation": OpCheckEscalations})
	assert.ErrorIs(t, err, context.Canceled)
}
