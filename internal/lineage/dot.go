// Package lineage renders the variant population's parent/child tree in
// DOT and JSON output formats.
package lineage

import (
	"fmt"
	"strings"

	"github.com/halcyonic/resonate/internal/variant"
)

// Format specifies the output format for lineage rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// generationColors maps generation depth to DOT colors. Depths past the
// table reuse the last entry.
var generationColors = []string{
	"steelblue",   // seeds
	"mediumseagreen",
	"goldenrod",
	"tomato",
}

// RenderDOT produces a Graphviz DOT representation of the variant lineage.
// Active variants render solid; deactivated ones render dashed.
func RenderDOT(variants []variant.Variant) string {
	var b strings.Builder
	b.WriteString("digraph resonate {\n")
	b.WriteString("  rankdir=TB;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	byID := make(map[string]bool, len(variants))
	for _, v := range variants {
		byID[v.ID] = true
	}

	for _, v := range variants {
		color := generationColors[len(generationColors)-1]
		if v.Generation < len(generationColors) {
			color = generationColors[v.Generation]
		}

		style := "filled"
		if v.Weight == 0 {
			style = "filled,dashed"
		}

		label := fmt.Sprintf("%s\\nscore=%.3f weight=%.2f", truncate(v.Name, 40), v.QCTFScore, v.Weight)
		b.WriteString(fmt.Sprintf("  %q [label=%q, fillcolor=%q, style=%q, tooltip=\"theta=%.2f entropy=%.4f\"];\n",
			v.ID, label, color, style, v.Theta, v.Entropy))
	}
	b.WriteString("\n")

	for _, v := range variants {
		if v.ParentID == "" || !byID[v.ParentID] {
			continue
		}
		b.WriteString(fmt.Sprintf("  %q -> %q [label=\"g%d\"];\n", v.ParentID, v.ID, v.Generation))
	}

	b.WriteString("}\n")
	return b.String()
}

// Node is one lineage entry in the JSON rendering.
type Node struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ParentID     string   `json:"parent_id,omitempty"`
	Generation   int      `json:"generation"`
	QCTFScore    float64  `json:"qctf_score"`
	Weight       float64  `json:"weight"`
	Theta        float64  `json:"theta"`
	Entropy      float64  `json:"entropy"`
	Capabilities []string `json:"capabilities"`
	Children     []string `json:"children,omitempty"`
}

// RenderJSON produces the lineage as a flat node list with back- and
// forward-references resolved.
func RenderJSON(variants []variant.Variant) []Node {
	children := make(map[string][]string)
	for _, v := range variants {
		if v.ParentID != "" {
			children[v.ParentID] = append(children[v.ParentID], v.ID)
		}
	}

	out := make([]Node, 0, len(variants))
	for _, v := range variants {
		out = append(out, Node{
			ID:           v.ID,
			Name:         v.Name,
			ParentID:     v.ParentID,
			Generation:   v.Generation,
			QCTFScore:    v.QCTFScore,
			Weight:       v.Weight,
			Theta:        v.Theta,
			Entropy:      v.Entropy,
			Capabilities: v.Capabilities,
			Children:     children[v.ID],
		})
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
