package srg

import (
	"fmt"
	"strings"
)

// Summary renders the vertex table as text for logging. Names, when given,
// annotate the label rows; extra labels beyond the name list fall back to
// their numeric id.
func (g *Graph) Summary(names []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-5s %-14s %-28s %-12s %-10s\n", "label", "name", "centroid", "intensity", "size")
	for row, l := range g.Labels {
		name := ""
		if int(l) < len(names) {
			name = names[l]
		}
		v := g.Vertices.RawRowView(row)
		fmt.Fprintf(&b, "%-5d %-14s %8.2f,%8.2f,%8.2f %12.4f %10.0f\n",
			l, name, v[AttrCentroidX], v[AttrCentroidY], v[AttrCentroidZ], v[AttrIntensity], v[AttrSize])
	}
	return b.String()
}
