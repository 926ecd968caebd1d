// Package checklist is the conditional-rule visibility engine behind
// schema-driven checklists.
//
// A checklist template is an ordered list of groups, each an ordered list of
// fields. Some fields are conditional rules: they show or hide other fields
// in a group depending on conditions over the values of triggering fields.
// Rules can nest, since a rule may control another rule's field.
//
// Typical use is as follows:
//
//  1. Build an Engine from a template with NewEngine. The template is indexed
//     and validated; malformed templates fail with a *SchemaError.
//  2. Start a Session for an assignee (a franchisee or site).
//  3. Call Session.SetValue for every answer. Each call evaluates the
//     conditions the field feeds, applies the affected rules (cascading into
//     nested rules), and renumbers the visible questions.
//  4. Render from Session.Props.
//  5. Submit with Session.Submit.
//
// Engine and State
//
// The engine never modifies its template. Answers, hidden flags and condition
// outcomes live in a State overlay, keyed by ID. The engine's Resolve, Apply,
// Project and Renumber methods are the individual pipeline steps; the Session
// runs them in order under a mutex, one change at a time.
//
// Rule IDs
//
// A rule is identified by the ID of the conditionalRule field that wraps it.
// Condition IDs are unique within a rule only; the key of a condition is
// "ruleID/conditionID".
//
// Autosave
//
// A session saves in-progress answers through an Autosaver, a fixed delay
// after the last change. A change within the delay pushes the save back.
// Locking, submitting or closing the session drops a pending save.
//
// Expressions
//
// Conditions with the expr operator are compiled by a Compiler; the cel
// package provides one based on the Common Expression Language.
package checklist
