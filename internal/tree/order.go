package tree

import (
	"fmt"
	"sort"
)

// orderKeyGap is the spacing between freshly assigned manual order keys.
// Midpoint insertion between neighbors keeps relative-placement moves O(1);
// a full renumber happens only when a gap is exhausted, which keeps the
// amortized cost constant.
const orderKeyGap = int64(1) << 10

// sortSaves restores the canonical ordering of a profile's save list:
// manually ordered entries first by order key, then unordered entries in
// filesystem order (lexical by name).
func sortSaves(p *Profile) {
	sort.SliceStable(p.Saves, func(i, j int) bool {
		a, b := p.Saves[i], p.Saves[j]

		switch {
		case a.Manual && b.Manual:
			if a.OrderKey != b.OrderKey {
				return a.OrderKey < b.OrderKey
			}

			return a.Name < b.Name
		case a.Manual:
			return true
		case b.Manual:
			return false
		default:
			return a.Name < b.Name
		}
	})
}

// ReorderSave moves a save entry to targetPos within its profile's displayed
// order. The first reorder materializes the current displayed order as manual
// keys so the result is a total order over the profile's save set.
func (t *Tree) ReorderSave(profileID, saveID ID, targetPos int) error {
	p, err := t.Profile(profileID)
	if err != nil {
		return err
	}

	idx := saveIndex(p, saveID)
	if idx < 0 {
		return fmt.Errorf("save %s: %w", saveID, ErrNotFound)
	}

	if targetPos < 0 {
		targetPos = 0
	}

	if targetPos >= len(p.Saves) {
		targetPos = len(p.Saves) - 1
	}

	if targetPos == idx {
		return nil
	}

	materializeOrder(p)

	s := p.Saves[idx]
	p.Saves = append(p.Saves[:idx], p.Saves[idx+1:]...)
	p.Saves = append(p.Saves[:targetPos], append([]*SaveEntry{s}, p.Saves[targetPos:]...)...)

	assignKeyAt(p, targetPos)
	sortSaves(p)

	return nil
}

// PlaceAfter assigns the save entry an order key strictly between the given
// sibling and that sibling's current successor, or after the sibling when it
// is last. Used by move with relative placement.
func (t *Tree) PlaceAfter(profileID, saveID, afterID ID) error {
	p, err := t.Profile(profileID)
	if err != nil {
		return err
	}

	if saveIndex(p, saveID) < 0 {
		return fmt.Errorf("save %s: %w", saveID, ErrNotFound)
	}

	afterIdx := saveIndex(p, afterID)
	if afterIdx < 0 {
		return fmt.Errorf("save %s: %w", afterID, ErrNotFound)
	}

	materializeOrder(p)

	// Re-find after materialization (keys changed, order did not).
	idx := saveIndex(p, saveID)
	afterIdx = saveIndex(p, afterID)

	s := p.Saves[idx]
	p.Saves = append(p.Saves[:idx], p.Saves[idx+1:]...)

	if idx < afterIdx {
		afterIdx--
	}

	target := afterIdx + 1
	p.Saves = append(p.Saves[:target], append([]*SaveEntry{s}, p.Saves[target:]...)...)

	assignKeyAt(p, target)
	sortSaves(p)

	return nil
}

// RestoreOrder applies persisted manual order keys, by save name, to a
// profile's entries and re-sorts. Names not present in the profile are
// ignored; entries without a key stay in automatic ordering.
func (t *Tree) RestoreOrder(profileID ID, keys map[string]int64) error {
	p, err := t.Profile(profileID)
	if err != nil {
		return err
	}

	for _, s := range p.Saves {
		if key, ok := keys[s.Name]; ok {
			s.Manual = true
			s.OrderKey = key
		}
	}

	sortSaves(p)

	return nil
}

// materializeOrder promotes every entry in the profile to a manual key
// reflecting the current displayed order. No-op positionally: the displayed
// order is unchanged, but afterwards every entry carries an explicit key.
func materializeOrder(p *Profile) {
	allManual := true

	for _, s := range p.Saves {
		if !s.Manual {
			allManual = false
			break
		}
	}

	if allManual {
		return
	}

	renumberSaves(p)
}

// assignKeyAt computes a midpoint key for the entry at position i between its
// materialized neighbors, renumbering the whole list when the gap is spent.
func assignKeyAt(p *Profile, i int) {
	s := p.Saves[i]
	s.Manual = true

	switch {
	case len(p.Saves) == 1:
		s.OrderKey = orderKeyGap
	case i == 0:
		s.OrderKey = p.Saves[1].OrderKey - orderKeyGap
	case i == len(p.Saves)-1:
		s.OrderKey = p.Saves[i-1].OrderKey + orderKeyGap
	default:
		lo, hi := p.Saves[i-1].OrderKey, p.Saves[i+1].OrderKey
		if hi-lo < 2 {
			renumberSaves(p)
			return
		}

		s.OrderKey = lo + (hi-lo)/2
	}
}

// renumberSaves rewrites every key with fresh gap spacing, preserving the
// current displayed order.
func renumberSaves(p *Profile) {
	for i, s := range p.Saves {
		s.Manual = true
		s.OrderKey = int64(i+1) * orderKeyGap
	}
}

// saveIndex returns the displayed position of a save entry, or -1.
func saveIndex(p *Profile, id ID) int {
	for i, s := range p.Saves {
		if s.ID == id {
			return i
		}
	}

	return -1
}
