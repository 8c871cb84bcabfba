// Package roster holds the immutable servant catalogue, grouped into five
// rarity ranks. The catalogue ships embedded in the binary and is loaded
// once at startup; it is never mutated afterwards.
package roster

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/servants.yaml
var servantsYAML []byte

// Definition describes one summonable servant.
type Definition struct {
	Name          string `yaml:"name"`
	Class         string `yaml:"class"`
	Description   string `yaml:"description"`
	NoblePhantasm string `yaml:"noble_phantasm"`
	ImageURL      string `yaml:"image_url"`
	// Rank is filled in from the grouping key at load time.
	Rank Rank `yaml:"-"`
}

// Roster is the loaded, validated servant catalogue.
type Roster struct {
	byRank map[Rank][]Definition
}

// Load parses the embedded servant data.
//
// Postcondition: Returns a Roster where every rank has at least one
// definition and names are unique within each rank, or a non-nil error.
func Load() (*Roster, error) {
	return parse(servantsYAML)
}

func parse(data []byte) (*Roster, error) {
	var raw map[string][]Definition
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing servant data: %w", err)
	}

	byRank := make(map[Rank][]Definition, len(raw))
	for key, defs := range raw {
		rank, err := ParseRank(key)
		if err != nil {
			return nil, fmt.Errorf("servant data: %w", err)
		}
		seen := make(map[string]bool, len(defs))
		for i := range defs {
			d := &defs[i]
			if d.Name == "" {
				return nil, fmt.Errorf("servant data: rank %s entry %d has no name", rank, i)
			}
			if seen[d.Name] {
				return nil, fmt.Errorf("servant data: duplicate name %q in rank %s", d.Name, rank)
			}
			seen[d.Name] = true
			d.Rank = rank
		}
		byRank[rank] = defs
	}

	for _, rank := range Ranks() {
		if len(byRank[rank]) == 0 {
			return nil, fmt.Errorf("servant data: rank %s is empty", rank)
		}
	}

	return &Roster{byRank: byRank}, nil
}

// ByRank returns the definitions for the given rank in catalogue order.
//
// Postcondition: Returns a non-empty slice for valid ranks, nil otherwise.
// Callers must not modify the returned slice.
func (r *Roster) ByRank(rank Rank) []Definition {
	return r.byRank[rank]
}

// Find looks up a servant by name, case-insensitively. A substring match
// is accepted, first hit in rank order wins.
//
// Postcondition: Returns the Definition and true, or a zero value and false.
func (r *Roster) Find(name string) (Definition, bool) {
	needle := strings.ToLower(name)
	for _, rank := range Ranks() {
		for _, d := range r.byRank[rank] {
			if strings.Contains(strings.ToLower(d.Name), needle) {
				return d, true
			}
		}
	}
	return Definition{}, false
}

// FindInRank looks up a servant by exact name within a rank, case-insensitively.
func (r *Roster) FindInRank(rank Rank, name string) (Definition, bool) {
	for _, d := range r.byRank[rank] {
		if strings.EqualFold(d.Name, name) {
			return d, true
		}
	}
	return Definition{}, false
}

// Random picks a uniformly random definition from the given rank.
//
// Precondition: rank must be valid; src must be non-nil.
func (r *Roster) Random(rank Rank, src Source) Definition {
	defs := r.byRank[rank]
	return defs[src.Intn(len(defs))]
}

// ByClass returns every definition whose class matches, case-insensitively,
// across all ranks in rank order.
func (r *Roster) ByClass(class string) []Definition {
	var out []Definition
	for _, rank := range Ranks() {
		for _, d := range r.byRank[rank] {
			if strings.EqualFold(d.Class, class) {
				out = append(out, d)
			}
		}
	}
	return out
}

// Counts returns the number of definitions per rank.
func (r *Roster) Counts() map[Rank]int {
	counts := make(map[Rank]int, len(r.byRank))
	for rank, defs := range r.byRank {
		counts[rank] = len(defs)
	}
	return counts
}
