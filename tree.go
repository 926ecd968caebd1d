package checklist

import (
	"strings"
)

const maxTreeDepth = 20

// Tree returns a tree of the template's rules, starting from the rules no
// other rule controls. Each rule lists the fields it controls; nested rules
// are expanded in place.
//
//	Fire safety
//	└── r_smoke (any)
//	    ├── detector_location
//	    └── r_battery (any)
//	        └── battery_date
func (e *Engine) Tree() string {
	var roots []string
	for _, id := range e.ruleOrder {
		if len(e.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	var sb strings.Builder
	sb.WriteString(e.template.Name)
	sb.WriteString("\n")
	e.buildTree(&sb, roots, "", 0)
	return sb.String()
}

func (e *Engine) buildTree(sb *strings.Builder, ids []string, prefix string, depth int) {
	if depth >= maxTreeDepth {
		return
	}
	for i, id := range ids {
		var connector, childPrefix string
		if i == len(ids)-1 {
			connector = "└── "
			childPrefix = "    "
		} else {
			connector = "├── "
			childPrefix = "│   "
		}

		sb.WriteString(prefix)
		sb.WriteString(connector)
		sb.WriteString(id)
		r, isRule := e.rules[id]
		if !isRule {
			sb.WriteString("\n")
			continue
		}
		sb.WriteString(" (")
		sb.WriteString(string(r.Combine))
		sb.WriteString(")\n")

		var children []string
		for _, f := range e.controls[id] {
			children = append(children, f.ID)
		}
		e.buildTree(sb, children, prefix+childPrefix, depth+1)
	}
}
