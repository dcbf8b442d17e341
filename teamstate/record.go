package teamstate

import (
	"reflect"
	"time"
)

// Keys of the default team state schema.
const (
	KeyCustomerAnalysis = "customer_analysis"
	KeyResearchFindings = "research_findings"
	KeyTeamDecisions    = "team_decisions"
	KeyEscalationFlags  = "escalation_flags"
	KeyContextSharing   = "context_sharing"
	KeyInteractionFlow  = "interaction_flow"
	KeyQualityMetrics   = "quality_metrics"
)

// TimestampLayout is the fixed-width UTC layout used for every timestamp this
// package writes, so lexical order equals chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string { return t.UTC().Format(TimestampLayout) }

// TeamStateRecord is the orchestrator's versioned copy of one team's state.
type TeamStateRecord struct {
	TeamName    string         `json:"team_name"`
	State       map[string]any `json:"state"`
	LastUpdated time.Time      `json:"last_updated"`
	SyncVersion int64          `json:"sync_version"`
}

// Clone returns a deep copy of the record.
func (r TeamStateRecord) Clone() TeamStateRecord {
	r.State = cloneState(r.State)
	return r
}

// DefaultState returns a fresh copy of the canonical empty team state.
func DefaultState() map[string]any {
	return map[string]any{
		KeyCustomerAnalysis: map[string]any{},
		KeyResearchFindings: []any{},
		KeyTeamDecisions:    []any{},
		KeyEscalationFlags:  map[string]any{},
		KeyContextSharing:   map[string]any{},
		KeyInteractionFlow:  []any{},
		KeyQualityMetrics:   map[string]any{},
	}
}

func cloneState(in map[string]any) map[string]any {
	if in == nil {
		return map[string]any{}
	}
	return deepCopy(in).(map[string]any)
}

// deepCopy copies maps, slices and arrays recursively, whatever their element
// types. Pointers, structs and scalars are returned as is and are expected to
// be immutable.
func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = deepCopy(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopy(e)
		}
		return out
	case nil, string, bool, int, int64, float64, time.Time:
		return v
	default:
		return copyValue(reflect.ValueOf(v)).Interface()
	}
}

func copyValue(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Interface:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type()).Elem()
		out.Set(reflect.ValueOf(deepCopy(rv.Elem().Interface())))
		return out
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), copyValue(iter.Value()))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(copyValue(rv.Index(i)))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(copyValue(rv.Index(i)))
		}
		return out
	default:
		return rv
	}
}

// asMap views v as a generic map; other types yield nil.
func asMap(v any) map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return t
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = e
		}
		return out
	default:
		return nil
	}
}

// asSlice views any slice or array as []any; other types yield nil.
func asSlice(v any) []any {
	if s, ok := v.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

// timestampOf extracts an entry's "timestamp" as a string. time.Time values
// are formatted with TimestampLayout; missing values yield "".
func timestampOf(entry map[string]any) string {
	switch ts := entry["timestamp"].(type) {
	case string:
		return ts
	case time.Time:
		return FormatTimestamp(ts)
	default:
		return ""
	}
}
