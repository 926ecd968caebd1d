package checklist

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// A Change describes the effect of one field value change.
type Change struct {
	FieldID string
	Value   any

	// Rules whose conditions the field feeds, in evaluation order.
	Rules []string

	// Fields whose hidden flag flipped, by their new state.
	Shown  []string
	Hidden []string

	// Render props after the change.
	Props *RenderProps
}

// String produces a table of the rules and fields affected by the change.
func (c *Change) String() string {
	tw := table.NewWriter()
	tw.SetTitle(fmt.Sprintf("\n%s = %v\n", c.FieldID, c.Value))
	tw.AppendHeader(table.Row{"Field", "Now", "No."})
	rows := func(ids []string, state string) {
		for _, id := range ids {
			var num string
			if c.Props != nil {
				if fp, ok := c.Props.Field(id); ok {
					num = fp.QuestionLabel()
				}
			}
			tw.AppendRow(table.Row{id, state, num})
		}
	}
	rows(c.Shown, "shown")
	rows(c.Hidden, "hidden")
	tw.AppendFooter(table.Row{"Rules", fmt.Sprint(len(c.Rules)), ""})
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	tw.SetStyle(style)
	return tw.Render()
}
