package checklist

import (
	"fmt"
	"slices"
)

// cascadeItem is a rule waiting to be applied, with the chain of rules that
// led to it.
type cascadeItem struct {
	ruleID string
	path   []string
}

// Apply applies the rule's show decision to the fields it controls, then
// cascades into the rules wrapped by any controlled conditionalRule fields.
// A nested rule is decided by its own conditions, whatever the outcome of its
// parent.
//
// A field controlled by several rules is shown if any of them shows it, so
// the order in which rules are applied does not matter.
//
// Apply returns the IDs of the fields whose hidden flag changed, in the order
// they changed. A rule reached through two parents is applied once. A rule
// that reaches itself is reported as a *SchemaError; NewEngine rejects such
// templates, so this only happens if the engine's index is corrupt.
func (e *Engine) Apply(st *State, ruleID string) ([]string, error) {
	if _, ok := e.rules[ruleID]; !ok {
		return nil, fmt.Errorf("applying %s: %w", ruleID, ErrRuleNotFound)
	}

	var changed []string
	done := map[string]bool{}
	queue := []cascadeItem{{ruleID: ruleID, path: []string{ruleID}}}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if done[item.ruleID] {
			continue
		}
		done[item.ruleID] = true
		e.opts.Metrics.ruleApplied()

		for _, f := range e.controls[item.ruleID] {
			show := e.shownByAny(st, f.ID)
			if st.Hidden[f.ID] == show {
				changed = append(changed, f.ID)
			}
			if show {
				delete(st.Hidden, f.ID)
			} else {
				st.Hidden[f.ID] = true
			}

			if f.Type != FieldConditionalRule {
				continue
			}
			if slices.Contains(item.path, f.ID) {
				return changed, &SchemaError{
					Kind:   SchemaCycle,
					RuleID: f.ID,
					Path:   append(slices.Clone(item.path), f.ID),
				}
			}
			queue = append(queue, cascadeItem{
				ruleID: f.ID,
				path:   append(slices.Clone(item.path), f.ID),
			})
		}
	}
	return changed, nil
}

// show folds the rule's condition outcomes with its combine policy.
// A rule without conditions hides its fields.
func (e *Engine) show(st *State, ruleID string) bool {
	r := e.rules[ruleID]
	if len(r.Conditions) == 0 {
		return false
	}
	for _, c := range r.Conditions {
		applied := st.IsApplied(ruleID, c.ID)
		switch {
		case r.Combine == CombineAll && !applied:
			return false
		case r.Combine != CombineAll && applied:
			return true
		}
	}
	return r.Combine == CombineAll
}

// shownByAny reports whether any rule controlling the field shows it.
func (e *Engine) shownByAny(st *State, fieldID string) bool {
	for _, rid := range e.controllers[fieldID] {
		if e.show(st, rid) {
			return true
		}
	}
	return false
}

// Shown reports the current show decision of the rule.
func (e *Engine) Shown(st *State, ruleID string) (bool, error) {
	if _, ok := e.rules[ruleID]; !ok {
		return false, fmt.Errorf("%s: %w", ruleID, ErrRuleNotFound)
	}
	return e.show(st, ruleID), nil
}
