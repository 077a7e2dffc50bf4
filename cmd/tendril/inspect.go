package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	tderrors "github.com/vango-dev/tendril/internal/errors"
	"github.com/vango-dev/tendril/pkg/host"
	"github.com/vango-dev/tendril/pkg/htmltree"
	"github.com/vango-dev/tendril/pkg/tendril"
)

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "inspect FILE",
		Annotations: map[string]string{skipConfig: "true"},
		Short:       "List every directive in a document",
		Long: `Parse a document without mounting it and list every directive with the
way it is classified. Invalid directives are listed with their error code.

Examples:
  tendril inspect index.html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return tderrors.New(tderrors.ErrDocumentNotFound).WithDetailf("%s does not exist.", args[0])
			}
			defer f.Close()

			doc, err := htmltree.Parse(f)
			if err != nil {
				return tderrors.New(tderrors.ErrDocumentParse).Wrap(err)
			}
			rows := collectDirectives(doc.Root())
			printDirectives(cmd.OutOrStdout(), rows)
			return nil
		},
	}
}

// directiveRow is one line of the inspect table.
type directiveRow struct {
	Node   string
	Attr   string
	Kind   string
	Detail string
	Value  string
}

func collectDirectives(root host.Node) []directiveRow {
	var rows []directiveRow
	var walk func(n host.Node)
	walk = func(n host.Node) {
		if n.Kind() == host.KindElement {
			for _, attr := range n.Attributes() {
				d, err := tendril.Classify(attr.Name)
				if err != nil {
					rows = append(rows, directiveRow{
						Node:   nodeLabel(n),
						Attr:   attr.Name,
						Kind:   "error",
						Detail: tderrors.CodeOf(err),
						Value:  attr.Value,
					})
					continue
				}
				if d.Kind == tendril.DirectiveNone {
					continue
				}
				rows = append(rows, directiveRow{
					Node:   nodeLabel(n),
					Attr:   attr.Name,
					Kind:   d.Kind.String(),
					Detail: directiveDetail(d),
					Value:  attr.Value,
				})
			}
		}
		for _, c := range n.Children() {
			walk(c)
		}
	}
	walk(root)
	return rows
}

func directiveDetail(d tendril.Directive) string {
	switch d.Kind {
	case tendril.DirectiveEvent:
		if mods := d.Event.Modifiers.String(); mods != "" {
			return d.Event.Event + " | " + mods
		}
		return d.Event.Event
	case tendril.DirectiveAttr, tendril.DirectiveProp:
		return d.Target.String()
	case tendril.DirectiveLet:
		s := d.Name
		if d.Store != "" {
			s += " (" + string(d.Store) + ")"
		}
		if len(d.Deps) > 0 {
			s += " <- " + strings.Join(d.Deps, ", ")
		}
		return s
	}
	return ""
}

func nodeLabel(n host.Node) string {
	label := "<" + n.Tag()
	if id, ok := n.Attr("id"); ok && id != "" {
		label += "#" + id
	}
	return label + ">"
}

func printDirectives(w io.Writer, rows []directiveRow) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Node", "Attribute", "Kind", "Detail", "Value"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetCenterSeparator("")
	for _, r := range rows {
		table.Append([]string{r.Node, r.Attr, r.Kind, r.Detail, truncate(r.Value, 40)})
	}
	table.Render()
	fmt.Fprintf(w, "\n%d directives\n", len(rows))
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
