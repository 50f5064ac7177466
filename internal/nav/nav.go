// Package nav tracks the user's position in the entity hierarchy. The
// cursor anchors to entity identity, not list index, so concurrent
// reconciler changes reshuffle the lists without stealing the selection.
package nav

import (
	"github.com/savescum/savescum/internal/tree"
)

// Pane is the focused column of the hierarchy.
type Pane int

const (
	PaneGames Pane = iota
	PaneProfiles
	PaneSaves
)

// String returns the lowercase pane name.
func (p Pane) String() string {
	switch p {
	case PaneGames:
		return "games"
	case PaneProfiles:
		return "profiles"
	case PaneSaves:
		return "saves"
	default:
		return "unknown"
	}
}

// Mode is the interaction state. Browse is the default; Input and Confirm
// are modal states entered by commands that need a name or a confirmation.
type Mode int

const (
	ModeBrowse Mode = iota
	ModeInput
	ModeConfirm
)

// Pending describes the operation a modal state will complete.
type Pending struct {
	// Op names the pending operation ("rename", "import", "delete", ...).
	Op string
	// Target is the entity the operation applies to. Zero for operations
	// that create (the target does not exist yet).
	Target tree.Ref
}

// anchor is one pane's cursor: the selected entity plus its last known
// position, used to land near the old spot when the entity disappears.
type anchor struct {
	id  tree.ID
	idx int
}

// Selection is the navigation state machine. Owned by the event loop.
type Selection struct {
	tree *tree.Tree

	pane    Pane
	game    anchor
	profile anchor
	save    anchor

	mode    Mode
	pending Pending
}

// New creates a selection over the tree, focused on the games pane.
func New(t *tree.Tree) *Selection {
	return &Selection{tree: t}
}

// Pane returns the focused pane.
func (s *Selection) Pane() Pane { return s.pane }

// Mode returns the interaction mode.
func (s *Selection) Mode() Mode { return s.mode }

// Pending returns the modal operation in flight.
func (s *Selection) Pending() Pending { return s.pending }

// Game returns the selected game, if any.
func (s *Selection) Game() (*tree.Game, bool) {
	g, err := s.tree.Game(s.game.id)
	return g, err == nil
}

// Profile returns the selected profile, if any.
func (s *Selection) Profile() (*tree.Profile, bool) {
	p, err := s.tree.Profile(s.profile.id)
	return p, err == nil
}

// Save returns the selected save, if any.
func (s *Selection) Save() (*tree.SaveEntry, bool) {
	e, err := s.tree.Save(s.save.id)
	return e, err == nil
}

// Current returns the selected entity in the focused pane.
func (s *Selection) Current() (tree.Ref, bool) {
	switch s.pane {
	case PaneGames:
		if _, ok := s.Game(); ok {
			return tree.Ref{Kind: tree.KindGame, ID: s.game.id}, true
		}
	case PaneProfiles:
		if _, ok := s.Profile(); ok {
			return tree.Ref{Kind: tree.KindProfile, ID: s.profile.id}, true
		}
	case PaneSaves:
		if _, ok := s.Save(); ok {
			return tree.Ref{Kind: tree.KindSave, ID: s.save.id}, true
		}
	}

	return tree.Ref{}, false
}

// siblings returns the focused pane's ordered entity IDs.
func (s *Selection) siblings() []tree.ID {
	switch s.pane {
	case PaneGames:
		games := s.tree.Games()
		ids := make([]tree.ID, len(games))

		for i, g := range games {
			ids[i] = g.ID
		}

		return ids

	case PaneProfiles:
		g, ok := s.Game()
		if !ok {
			return nil
		}

		ids := make([]tree.ID, len(g.Profiles))
		for i, p := range g.Profiles {
			ids[i] = p.ID
		}

		return ids

	case PaneSaves:
		p, ok := s.Profile()
		if !ok {
			return nil
		}

		ids := make([]tree.ID, len(p.Saves))
		for i, e := range p.Saves {
			ids[i] = e.ID
		}

		return ids
	}

	return nil
}

func (s *Selection) paneAnchor() *anchor {
	switch s.pane {
	case PaneProfiles:
		return &s.profile
	case PaneSaves:
		return &s.save
	default:
		return &s.game
	}
}

func indexOf(ids []tree.ID, id tree.ID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}

	return -1
}

// Next moves the cursor down within the focused pane, clamping at the end.
func (s *Selection) Next() { s.step(1) }

// Prev moves the cursor up within the focused pane, clamping at the start.
func (s *Selection) Prev() { s.step(-1) }

func (s *Selection) step(delta int) {
	ids := s.siblings()
	if len(ids) == 0 {
		return
	}

	a := s.paneAnchor()

	i := indexOf(ids, a.id)
	if i < 0 {
		// The anchored entity is gone; land near its old position.
		i = min(a.idx, len(ids)-1)
	} else {
		i += delta
	}

	if i < 0 {
		i = 0
	}

	if i >= len(ids) {
		i = len(ids) - 1
	}

	a.id = ids[i]
	a.idx = i
}

// Descend focuses the next pane to the right, selecting the first child
// when the child anchor is stale. Descending past the saves pane or into an
// empty pane is a no-op.
func (s *Selection) Descend() {
	switch s.pane {
	case PaneGames:
		g, ok := s.Game()
		if !ok || len(g.Profiles) == 0 {
			return
		}

		s.pane = PaneProfiles
		s.revalidate(&s.profile)

	case PaneProfiles:
		p, ok := s.Profile()
		if !ok || len(p.Saves) == 0 {
			return
		}

		s.pane = PaneSaves
		s.revalidate(&s.save)
	}
}

// Ascend focuses the pane to the left. At the games pane it is a no-op.
func (s *Selection) Ascend() {
	switch s.pane {
	case PaneSaves:
		s.pane = PaneProfiles
	case PaneProfiles:
		s.pane = PaneGames
	}
}

// revalidate re-anchors a pane's cursor after a focus change: keep the
// entity when it still belongs to the current parent, otherwise take the
// first sibling.
func (s *Selection) revalidate(a *anchor) {
	ids := s.siblings()
	if len(ids) == 0 {
		a.id = ""
		a.idx = 0

		return
	}

	if i := indexOf(ids, a.id); i >= 0 {
		a.idx = i
		return
	}

	a.id = ids[0]
	a.idx = 0
}

// Select anchors the cursor directly on an entity, focusing its pane and
// aligning the ancestor anchors.
func (s *Selection) Select(ref tree.Ref) bool {
	switch ref.Kind {
	case tree.KindGame:
		if _, err := s.tree.Game(ref.ID); err != nil {
			return false
		}

		s.pane = PaneGames
		s.game.id = ref.ID

	case tree.KindProfile:
		p, err := s.tree.Profile(ref.ID)
		if err != nil {
			return false
		}

		s.pane = PaneProfiles
		s.game.id = p.GameID
		s.profile.id = ref.ID

	case tree.KindSave:
		e, err := s.tree.Save(ref.ID)
		if err != nil {
			return false
		}

		p, err := s.tree.Profile(e.ProfileID)
		if err != nil {
			return false
		}

		s.pane = PaneSaves
		s.game.id = p.GameID
		s.profile.id = p.ID
		s.save.id = ref.ID
	}

	s.syncIndexes()

	return true
}

// syncIndexes refreshes each anchor's remembered position.
func (s *Selection) syncIndexes() {
	prevPane := s.pane

	for _, pane := range []Pane{PaneGames, PaneProfiles, PaneSaves} {
		s.pane = pane

		ids := s.siblings()
		a := s.paneAnchor()

		if i := indexOf(ids, a.id); i >= 0 {
			a.idx = i
		}
	}

	s.pane = prevPane
}

// Reanchor repairs the cursor after tree mutations: an anchor whose entity
// survived keeps it; a removed entity yields to the nearest sibling at its
// old position; an emptied pane hands focus to the parent.
func (s *Selection) Reanchor() {
	prevPane := s.pane

	s.pane = PaneGames
	s.revalidateNear(&s.game)

	s.pane = PaneProfiles
	s.revalidateNear(&s.profile)

	s.pane = PaneSaves
	s.revalidateNear(&s.save)

	s.pane = prevPane

	// Focus falls back to the deepest non-empty pane.
	if s.pane == PaneSaves && s.save.id == "" {
		s.pane = PaneProfiles
	}

	if s.pane == PaneProfiles && s.profile.id == "" {
		s.pane = PaneGames
	}
}

// revalidateNear keeps the anchored entity or lands on the sibling nearest
// its previous position.
func (s *Selection) revalidateNear(a *anchor) {
	ids := s.siblings()
	if len(ids) == 0 {
		a.id = ""
		a.idx = 0

		return
	}

	if i := indexOf(ids, a.id); i >= 0 {
		a.idx = i
		return
	}

	i := min(a.idx, len(ids)-1)
	a.id = ids[i]
	a.idx = i
}

// BeginInput enters input mode for an operation that needs a name.
func (s *Selection) BeginInput(op string, target tree.Ref) {
	s.mode = ModeInput
	s.pending = Pending{Op: op, Target: target}
}

// BeginConfirm enters confirm mode for a destructive operation.
func (s *Selection) BeginConfirm(op string, target tree.Ref) {
	s.mode = ModeConfirm
	s.pending = Pending{Op: op, Target: target}
}

// Resolve leaves the modal state, returning the pending operation.
func (s *Selection) Resolve() Pending {
	p := s.pending
	s.mode = ModeBrowse
	s.pending = Pending{}

	return p
}

// Cancel leaves the modal state, discarding the pending operation.
func (s *Selection) Cancel() {
	s.mode = ModeBrowse
	s.pending = Pending{}
}
