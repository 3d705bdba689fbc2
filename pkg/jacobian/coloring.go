package jacobian

import (
	"strconv"

	"github.com/katalvlaran/lvlath/core"

	"github.com/edp1096/gopf/pkg/spmat"
)

// Coloring is a greedy distance-1 coloring of J's columns: columns sharing
// a color have disjoint row supports (spec.md §4.2/§8), so one AD
// directional-derivative slot per color is enough to recover every column.
type Coloring struct {
	Of        []int // Of[col] is the color assigned to that column
	NumColors int
}

// Color builds the column-intersection ("conflict") graph of pattern —
// columns are vertices, an edge means the columns share a row — using
// lvlath's adjacency-list Graph, then greedily colors it. The conflict
// graph construction is the same "two columns sharing a row" test spec.md
// §4.2 describes as the reason coloring is sound.
func Color(pattern *spmat.Pattern) Coloring {
	g := core.NewGraph()
	for c := 0; c < pattern.Cols; c++ {
		_ = g.AddVertex(vid(c))
	}
	for _, cols := range pattern.RowColumns() {
		for i := 0; i < len(cols); i++ {
			for j := i + 1; j < len(cols); j++ {
				if !g.HasEdge(vid(cols[i]), vid(cols[j])) {
					_, _ = g.AddEdge(vid(cols[i]), vid(cols[j]), 1)
				}
			}
		}
	}

	coloring := make([]int, pattern.Cols)
	for i := range coloring {
		coloring[i] = -1
	}
	numColors := 0
	for c := 0; c < pattern.Cols; c++ {
		used := map[int]bool{}
		neighborIDs, _ := g.NeighborIDs(vid(c))
		for _, nb := range neighborIDs {
			if n, err := strconv.Atoi(nb); err == nil && coloring[n] >= 0 {
				used[coloring[n]] = true
			}
		}
		color := 0
		for used[color] {
			color++
		}
		coloring[c] = color
		if color+1 > numColors {
			numColors = color + 1
		}
	}
	return Coloring{Of: coloring, NumColors: numColors}
}

func vid(i int) string { return strconv.Itoa(i) }
