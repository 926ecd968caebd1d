package checklist

import "maps"

// State is the mutable overlay on an engine's template: current answers,
// visibility flags and condition outcomes. The zero State is not usable;
// create one with Engine.NewState.
//
// A State is not safe for concurrent use.
type State struct {
	// Field ID to answer
	Values map[string]any

	// Field ID to hidden flag
	Hidden map[string]bool

	// Condition key (rule ID/condition ID) to the last evaluation outcome
	Applied map[string]bool
}

// NewState returns a state holding the values, hidden flags and condition
// outcomes stored in the template. The state is not settled; see Settle.
func (e *Engine) NewState() *State {
	st := &State{
		Values:  make(map[string]any, len(e.fields)),
		Hidden:  make(map[string]bool, len(e.fields)),
		Applied: map[string]bool{},
	}
	for _, id := range e.fieldOrder {
		f := e.fields[id]
		if f.Value != nil {
			st.Values[id] = cloneValue(f.Value)
		}
		if f.Hidden {
			st.Hidden[id] = true
		}
	}
	for _, rid := range e.ruleOrder {
		for _, c := range e.rules[rid].Conditions {
			if c.Applied {
				st.Applied[conditionKey(rid, c.ID)] = true
			}
		}
	}
	return st
}

// Settle brings a state in line with its values: every triggered condition is
// evaluated against its field's current value, then every rule is applied.
// Settling a settled state changes nothing.
func (e *Engine) Settle(st *State) error {
	for _, fid := range e.fieldOrder {
		if len(e.triggers[fid]) == 0 {
			continue
		}
		if _, err := e.Resolve(st, fid, st.Values[fid]); err != nil {
			return err
		}
	}
	// Nested rules are reached through the cascade from their roots.
	for _, rid := range e.ruleOrder {
		if len(e.parents[rid]) > 0 {
			continue
		}
		if _, err := e.Apply(st, rid); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := &State{
		Values:  make(map[string]any, len(s.Values)),
		Hidden:  maps.Clone(s.Hidden),
		Applied: maps.Clone(s.Applied),
	}
	for k, v := range s.Values {
		c.Values[k] = cloneValue(v)
	}
	return c
}

// IsApplied reports the last outcome of a rule's condition.
func (s *State) IsApplied(ruleID, conditionID string) bool {
	return s.Applied[conditionKey(ruleID, conditionID)]
}

// Materialize writes the state into a copy of the engine's template.
func (e *Engine) Materialize(st *State) *Checklist {
	c := e.template.Clone()
	for _, g := range c.Groups {
		for _, f := range g.Fields {
			f.Value = cloneValue(st.Values[f.ID])
			f.Hidden = st.Hidden[f.ID]
			if f.ConditionalRule == nil {
				continue
			}
			for _, cond := range f.ConditionalRule.Conditions {
				cond.Applied = st.IsApplied(f.ID, cond.ID)
			}
		}
	}
	return c
}
