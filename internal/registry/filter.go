package registry

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// celFilter wraps a compiled CEL program used by ListEntries for expression
// filtering. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (*celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("sequence", cel.IntType),
		cel.Variable("submitter", cel.StringType),
		cel.Variable("ts_ms", cel.IntType),
		cel.Variable("op", cel.StringType),
		// Expose the operation payload as parsed JSON for field filtering
		cel.Variable("json", cel.DynType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, err
	}
	return &celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against one entry. Evaluation errors
// count as no match.
func (f *celFilter) Eval(e *Entry) bool {
	if !f.enabled {
		return true
	}
	var jsonObj any
	if raw, err := json.Marshal(e.Data); err == nil {
		_ = json.Unmarshal(raw, &jsonObj)
	}
	out, _, err := f.prog.Eval(map[string]any{
		"sequence":  int64(e.SequenceNumber),
		"submitter": e.Submitter,
		"ts_ms":     e.Timestamp.UnixMilli(),
		"op":        e.Data.Op(),
		"json":      jsonObj,
		"now_ms":    time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
