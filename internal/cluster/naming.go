package cluster

import (
	"fmt"
	"math"
)

// Archetype is a named region of the standardized (rating, review_count) plane.
type Archetype struct {
	Name   string
	Color  string
	Rating float64 // +1 high, -1 low
	Volume float64 // +1 many reviews, -1 few reviews
}

// Archetypes are the four quadrants clusters are named after.
var Archetypes = []Archetype{
	{Name: "Few reviews, high rating", Color: "#FFEB3B", Rating: 1, Volume: -1},
	{Name: "Few reviews, low rating", Color: "#E53935", Rating: -1, Volume: -1},
	{Name: "Many reviews, low rating", Color: "#1E88E5", Rating: -1, Volume: 1},
	{Name: "Many reviews, high rating", Color: "#4CAF50", Rating: 1, Volume: 1},
}

const fallbackColor = "#9E9E9E"

// NameCentroids names standardized centroids (columns: rating, review_count)
// by their position rather than their label number. With exactly as many
// centroids as archetypes, the assignment minimizing total squared distance
// is used so every cluster gets a distinct archetype. Otherwise each
// centroid takes the quadrant of its signs and repeated names are numbered.
func NameCentroids(centroids [][]float64) []Archetype {
	if len(centroids) == len(Archetypes) {
		return bestAssignment(centroids)
	}

	out := make([]Archetype, len(centroids))
	used := make(map[string]int)
	for i, c := range centroids {
		a := quadrant(c)
		used[a.Name]++
		if n := used[a.Name]; n > 1 {
			a.Name = fmt.Sprintf("%s (%d)", a.Name, n)
			a.Color = fallbackColor
		}
		out[i] = a
	}
	return out
}

func quadrant(c []float64) Archetype {
	for _, a := range Archetypes {
		if sign(c[0]) == a.Rating && sign(c[1]) == a.Volume {
			return a
		}
	}
	return Archetypes[0]
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func bestAssignment(centroids [][]float64) []Archetype {
	n := len(Archetypes)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}

	best := make([]int, n)
	bestCost := math.Inf(1)
	permute(perm, 0, func(p []int) {
		var cost float64
		for c, a := range p {
			dr := centroids[c][0] - Archetypes[a].Rating
			dv := centroids[c][1] - Archetypes[a].Volume
			cost += dr*dr + dv*dv
		}
		if cost < bestCost {
			bestCost = cost
			copy(best, p)
		}
	})

	out := make([]Archetype, n)
	for c, a := range best {
		out[c] = Archetypes[a]
	}
	return out
}

// permute calls visit for every permutation of p[k:], in lexicographic-ish
// order so ties resolve deterministically.
func permute(p []int, k int, visit func([]int)) {
	if k == len(p) {
		visit(p)
		return
	}
	for i := k; i < len(p); i++ {
		p[k], p[i] = p[i], p[k]
		permute(p, k+1, visit)
		p[k], p[i] = p[i], p[k]
	}
}
