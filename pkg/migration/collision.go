package migration

import (
	"fmt"
	"sort"
	"strings"
)

// ⚠️ Collision is a destination claimed by more than one source
type Collision struct {
	Destination string
	Sources     []string
}

// ❌ CollisionError lists every contested destination
type CollisionError struct {
	Collisions []Collision
	Unresolved bool // Still colliding after suffixes were applied
}

func (e *CollisionError) Error() string {
	var b strings.Builder
	if e.Unresolved {
		b.WriteString("paths still collide after adding suffixes:")
	} else {
		b.WriteString("paths collide after renaming, rerun with --avoid-collisions or exclude one side:")
	}
	for _, c := range e.Collisions {
		fmt.Fprintf(&b, "\n  %s <= %s", c.Destination, strings.Join(c.Sources, ", "))
	}
	return b.String()
}

// detectCollisions groups sources by destination. A selected path that is
// not renamed occupies its own location only when it exists in the checkout.
func detectCollisions(paths []string, renames map[string]string, exists func(string) bool) []Collision {
	occupants := map[string][]string{}
	for _, p := range paths {
		if newPath, ok := renames[p]; ok {
			occupants[newPath] = append(occupants[newPath], p)
			continue
		}
		if exists(p) {
			occupants[p] = append(occupants[p], p)
		}
	}

	var out []Collision
	for dest, sources := range occupants {
		if len(sources) < 2 {
			continue
		}
		sort.Strings(sources)
		out = append(out, Collision{Destination: dest, Sources: sources})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Destination < out[j].Destination })
	return out
}
