package checklist

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Resolve records in st the outcome of every condition fed by the field, given
// its new value, and returns the IDs of the rules owning those conditions.
// Each rule appears once, in the order its first condition was evaluated.
//
// Resolve does not store the value itself and does not apply the rules; see
// Apply.
//
// A condition whose expression fails at run time (for example, comparing text
// with a number) is logged and counts as not applied. Only schema errors are
// returned.
func (e *Engine) Resolve(st *State, fieldID string, value any) ([]string, error) {
	f, ok := e.fields[fieldID]
	if !ok {
		return nil, fmt.Errorf("resolving %s: %w", fieldID, ErrFieldNotFound)
	}

	var affected []string
	seen := map[string]bool{}
	for _, ref := range e.triggers[fieldID] {
		applied, err := e.Evaluate(value, f, ref.ruleID, ref.cond)
		e.opts.Metrics.conditionEvaluated()
		if err != nil {
			var se *SchemaError
			if errors.As(err, &se) {
				return nil, err
			}
			e.opts.Logger.Warn("condition evaluation failed, treating as not applied",
				zap.String("field", fieldID),
				zap.String("rule", ref.ruleID),
				zap.String("condition", ref.cond.ID),
				zap.Error(err))
			applied = false
		}
		st.Applied[ref.key()] = applied

		if !seen[ref.ruleID] {
			seen[ref.ruleID] = true
			affected = append(affected, ref.ruleID)
		}
	}
	return affected, nil
}

// Triggers returns the keys (rule ID/condition ID) of the conditions fed by
// the field, in evaluation order.
func (e *Engine) Triggers(fieldID string) []string {
	refs := e.triggers[fieldID]
	keys := make([]string, len(refs))
	for i, ref := range refs {
		keys[i] = ref.key()
	}
	return keys
}
