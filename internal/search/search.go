// Package search provides fuzzy lookup across the entity hierarchy.
package search

import (
	"github.com/sahilm/fuzzy"

	"github.com/savescum/savescum/internal/tree"
)

// Result is one ranked match.
type Result struct {
	Ref   tree.Ref
	Score int
	// Label is the human-readable path of the entity, e.g.
	// "elden-ring/ng+/boss-attempt".
	Label string
}

// index is a flattened view of the tree implementing fuzzy.Source.
type index struct {
	refs   []tree.Ref
	labels []string
}

func (ix *index) String(i int) string { return ix.labels[i] }
func (ix *index) Len() int            { return len(ix.labels) }

func buildIndex(t *tree.Tree, kinds map[tree.Kind]bool) *index {
	ix := &index{}

	add := func(ref tree.Ref, label string) {
		if kinds != nil && !kinds[ref.Kind] {
			return
		}

		ix.refs = append(ix.refs, ref)
		ix.labels = append(ix.labels, label)
	}

	for _, g := range t.Games() {
		add(tree.Ref{Kind: tree.KindGame, ID: g.ID}, g.Name)

		for _, p := range g.Profiles {
			add(tree.Ref{Kind: tree.KindProfile, ID: p.ID}, g.Name+"/"+p.Name)

			for _, s := range p.Saves {
				add(tree.Ref{Kind: tree.KindSave, ID: s.ID}, g.Name+"/"+p.Name+"/"+s.Name)
			}
		}
	}

	return ix
}

// Query ranks all entities against the query. Kinds restricts the result
// to the given entity kinds; nil means all.
func Query(t *tree.Tree, query string, kinds ...tree.Kind) []Result {
	var kindSet map[tree.Kind]bool

	if len(kinds) > 0 {
		kindSet = make(map[tree.Kind]bool, len(kinds))
		for _, k := range kinds {
			kindSet[k] = true
		}
	}

	ix := buildIndex(t, kindSet)

	matches := fuzzy.FindFrom(query, ix)

	results := make([]Result, len(matches))
	for i, m := range matches {
		results[i] = Result{
			Ref:   ix.refs[m.Index],
			Score: m.Score,
			Label: ix.labels[m.Index],
		}
	}

	return results
}

// Best returns the single strongest match, or false when nothing matches.
func Best(t *tree.Tree, query string, kinds ...tree.Kind) (Result, bool) {
	results := Query(t, query, kinds...)
	if len(results) == 0 {
		return Result{}, false
	}

	return results[0], true
}
