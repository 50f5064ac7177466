package watch

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/savescum/savescum/internal/fsops"
	"github.com/savescum/savescum/internal/tree"
)

// Applied describes one change the reconciler applied to the tree. The
// engine consumes these to re-anchor the selection cursor and persist
// structural mutations.
type Applied struct {
	Type ChangeType
	Kind tree.Kind
	ID   tree.ID

	// Name is the entity name after the change; OldName is set for moves.
	Name    string
	OldName string

	// Owning names for persistence: Game for profiles and saves, Profile
	// for saves.
	Game    string
	Profile string
}

// Reconciler merges raw filesystem events into the entity tree. It owns the
// rename-pairing buffer and drives the suppressor and debouncer; everything
// runs on the engine's event loop.
type Reconciler struct {
	tree       *tree.Tree
	roots      *RootSet
	suppressor *Suppressor
	debouncer  *Debouncer

	renameGrace    time.Duration
	pendingRenames []pendingRename

	logger *slog.Logger
}

// pendingRename is a rename-from waiting for its create counterpart. If
// none arrives within the grace window the rename degrades to a pure
// deletion (the destination fell outside all watch roots).
type pendingRename struct {
	path     string
	root     string
	deadline time.Time
}

// NewReconciler wires a reconciler over the given tree and roots.
func NewReconciler(
	t *tree.Tree, roots *RootSet, suppressor *Suppressor, debouncer *Debouncer,
	renameGrace time.Duration, logger *slog.Logger,
) *Reconciler {
	return &Reconciler{
		tree:        t,
		roots:       roots,
		suppressor:  suppressor,
		debouncer:   debouncer,
		renameGrace: renameGrace,
		logger:      logger,
	}
}

// Suppressor exposes the suppression table so the command executor can arm
// windows before performing filesystem side effects.
func (r *Reconciler) Suppressor() *Suppressor {
	return r.suppressor
}

// Observe ingests one raw event: filters noise, drops suppressed echoes,
// pairs renames, and buffers the rest for debounced application.
func (r *Reconciler) Observe(ev RawEvent) {
	name := filepath.Base(ev.Path)
	if strings.HasPrefix(name, ".") || fsops.IsPartial(name) {
		return
	}

	cls, err := r.roots.Classify(ev.Path)
	if err != nil {
		// Paths outside all watch roots are a classification error, not
		// silently droppable noise.
		r.logger.Error("event outside watch roots",
			slog.String("path", ev.Path), slog.String("op", ev.Op.String()))

		return
	}

	if r.suppressor.Match(ev.Path, ev.Op, ev.Time) {
		r.logger.Debug("suppressed self-caused event",
			slog.String("path", ev.Path), slog.String("op", ev.Op.String()))

		return
	}

	switch ev.Op {
	case OpRenameFrom:
		r.pendingRenames = append(r.pendingRenames, pendingRename{
			path:     ev.Path,
			root:     r.pairingRoot(ev.Path, cls),
			deadline: ev.Time.Add(r.renameGrace),
		})

	case OpCreate:
		if old, ok := r.takePendingRename(r.pairingRoot(ev.Path, cls), ev.Time); ok {
			// Source and destination both inside the same watch root:
			// a single identity-preserving move.
			r.debouncer.Add(Change{Type: ChangeMove, Path: ev.Path, OldPath: old, IsDir: ev.IsDir}, ev.Time)
			return
		}

		r.debouncer.Add(Change{Type: ChangeCreate, Path: ev.Path, IsDir: ev.IsDir}, ev.Time)

	case OpRemove:
		r.debouncer.Add(Change{Type: ChangeRemove, Path: ev.Path}, ev.Time)

	case OpWrite:
		r.debouncer.Add(Change{Type: ChangeModify, Path: ev.Path}, ev.Time)
	}
}

// pairingRoot is the namespace renames pair within: the outermost root
// containing the path. A storage root nested under the data dir shares its
// namespace with the other games there.
func (r *Reconciler) pairingRoot(path string, cls Class) string {
	if outer, ok := r.roots.Outermost(path); ok {
		return outer.Path
	}

	return cls.Root.Path
}

// takePendingRename pops the oldest live pending rename within root.
// Expired entries are left for Tick to degrade into deletions.
func (r *Reconciler) takePendingRename(root string, now time.Time) (string, bool) {
	for i, p := range r.pendingRenames {
		if now.After(p.deadline) || p.root != root {
			continue
		}

		r.pendingRenames = append(r.pendingRenames[:i], r.pendingRenames[i+1:]...)

		return p.path, true
	}

	return "", false
}

// Tick advances the reconciler's clock: expired pending renames become
// deletions, due debounced changes are applied to the tree. Returns the
// applied changes in order.
func (r *Reconciler) Tick(now time.Time) []Applied {
	remaining := r.pendingRenames[:0]

	for _, p := range r.pendingRenames {
		if now.After(p.deadline) {
			// No counterpart arrived: the destination is outside the
			// watched namespace, so this is a pure deletion.
			r.debouncer.Add(Change{Type: ChangeRemove, Path: p.path}, p.deadline)
			continue
		}

		remaining = append(remaining, p)
	}

	r.pendingRenames = remaining

	var applied []Applied

	for _, ch := range r.debouncer.Due(now) {
		if a, ok := r.apply(ch); ok {
			applied = append(applied, a)
		}
	}

	return applied
}

// NextDeadline returns the earliest instant Tick must run, or false when
// nothing is pending.
func (r *Reconciler) NextDeadline() (time.Time, bool) {
	next, found := r.debouncer.Next()

	for _, p := range r.pendingRenames {
		if !found || p.deadline.Before(next) {
			next, found = p.deadline, true
		}
	}

	return next, found
}

// apply merges one classified change into the tree. Applying the same
// change twice is a no-op: inserting an already-present entity or removing
// an already-absent one is silently absorbed, which makes the reconciler
// robust against races between suppression expiry and delayed duplicate OS
// notifications.
func (r *Reconciler) apply(ch Change) (Applied, bool) {
	cls, err := r.roots.Classify(ch.Path)
	if err != nil {
		r.logger.Error("change outside watch roots", slog.String("path", ch.Path))
		return Applied{}, false
	}

	switch ch.Type {
	case ChangeCreate:
		return r.applyCreate(ch, cls)
	case ChangeRemove:
		return r.applyRemove(ch)
	case ChangeMove:
		return r.applyMove(ch, cls)
	case ChangeModify:
		return r.applyModify(ch)
	}

	return Applied{}, false
}

func (r *Reconciler) applyCreate(ch Change, cls Class) (Applied, bool) {
	switch cls.Level {
	case LevelProfile:
		return r.createProfile(ch.Path, cls)
	case LevelSave:
		return r.createSave(ch.Path)
	case LevelGame, LevelRoot:
		// Games enter the tree through commands and persisted state, never
		// through directory discovery.
		r.logger.Info("unmanaged directory appeared under profiles root",
			slog.String("path", ch.Path))
	case LevelUnrelated:
		r.logger.Debug("ignoring nested path", slog.String("path", ch.Path))
	}

	return Applied{}, false
}

// createProfile inserts a discovered profile directory and scans its
// contents: a directory moved into a game root arrives fully populated.
func (r *Reconciler) createProfile(path string, cls Class) (Applied, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		// Stray file at profile depth, or the path vanished again.
		return Applied{}, false
	}

	gameID, ok := r.ownerGame(cls, filepath.Dir(path))
	if !ok {
		r.logger.Warn("profile directory without a known game", slog.String("path", path))
		return Applied{}, false
	}

	name := filepath.Base(path)

	p, err := r.tree.InsertProfile(gameID, &tree.Profile{Name: name, Path: path})
	if err != nil {
		if errors.Is(err, tree.ErrConflict) {
			return Applied{}, false // already present, idempotent absorb
		}

		r.logger.Warn("inserting discovered profile",
			slog.String("path", path), slog.String("error", err.Error()))

		return Applied{}, false
	}

	if err := r.scanProfileSaves(p); err != nil {
		r.logger.Warn("scanning discovered profile",
			slog.String("path", path), slog.String("error", err.Error()))
	}

	g, _ := r.tree.Game(gameID)

	return Applied{
		Type: ChangeCreate,
		Kind: tree.KindProfile,
		ID:   p.ID,
		Name: p.Name,
		Game: gameName(g),
	}, true
}

func (r *Reconciler) createSave(path string) (Applied, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Applied{}, false
	}

	dirRef, ok := r.tree.FindByPath(filepath.Dir(path))
	if !ok || dirRef.Kind != tree.KindProfile {
		r.logger.Warn("save file without a known profile", slog.String("path", path))
		return Applied{}, false
	}

	s, err := r.tree.InsertSave(dirRef.ID, &tree.SaveEntry{
		Name:    filepath.Base(path),
		Path:    path,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	})
	if err != nil {
		if errors.Is(err, tree.ErrConflict) {
			return Applied{}, false
		}

		r.logger.Warn("inserting discovered save",
			slog.String("path", path), slog.String("error", err.Error()))

		return Applied{}, false
	}

	p, _ := r.tree.Profile(dirRef.ID)
	g, _ := r.tree.Game(p.GameID)

	return Applied{
		Type:    ChangeCreate,
		Kind:    tree.KindSave,
		ID:      s.ID,
		Name:    s.Name,
		Game:    gameName(g),
		Profile: p.Name,
	}, true
}

func (r *Reconciler) applyRemove(ch Change) (Applied, bool) {
	ref, ok := r.tree.FindByPath(ch.Path)
	if !ok {
		return Applied{}, false // already absent, idempotent absorb
	}

	switch ref.Kind {
	case tree.KindGame:
		g, err := r.tree.RemoveGame(ref.ID)
		if err != nil {
			return Applied{}, false
		}

		r.roots.Remove(g.Path)

		return Applied{Type: ChangeRemove, Kind: tree.KindGame, ID: g.ID, Name: g.Name}, true

	case tree.KindProfile:
		p, err := r.tree.RemoveProfile(ref.ID)
		if err != nil {
			return Applied{}, false
		}

		g, _ := r.tree.Game(p.GameID)

		return Applied{
			Type: ChangeRemove, Kind: tree.KindProfile, ID: p.ID,
			Name: p.Name, Game: gameName(g),
		}, true

	case tree.KindSave:
		s, err := r.tree.Save(ref.ID)
		if err != nil {
			return Applied{}, false
		}

		p, _ := r.tree.Profile(s.ProfileID)
		if _, err := r.tree.RemoveSave(ref.ID); err != nil {
			return Applied{}, false
		}

		var g *tree.Game
		if p != nil {
			g, _ = r.tree.Game(p.GameID)
		}

		return Applied{
			Type: ChangeRemove, Kind: tree.KindSave, ID: s.ID,
			Name: s.Name, Game: gameName(g), Profile: profileName(p),
		}, true
	}

	return Applied{}, false
}

// applyMove handles an identity-preserving rename within the watched
// namespace. When the source was never tracked, the move degrades to a
// create of the destination.
func (r *Reconciler) applyMove(ch Change, cls Class) (Applied, bool) {
	oldRef, ok := r.tree.FindByPath(ch.OldPath)
	if !ok {
		return r.applyCreate(Change{Type: ChangeCreate, Path: ch.Path, IsDir: ch.IsDir}, cls)
	}

	newName := filepath.Base(ch.Path)

	switch oldRef.Kind {
	case tree.KindGame:
		if err := r.tree.RenameGame(oldRef.ID, newName, ch.Path); err != nil {
			r.logger.Warn("applying game rename", slog.String("error", err.Error()))
			return Applied{}, false
		}

		r.roots.Rename(ch.OldPath, ch.Path)

		return Applied{
			Type: ChangeMove, Kind: tree.KindGame, ID: oldRef.ID,
			Name: newName, OldName: filepath.Base(ch.OldPath),
		}, true

	case tree.KindProfile:
		return r.moveProfile(oldRef.ID, ch, newName)

	case tree.KindSave:
		return r.moveSave(oldRef.ID, ch, newName)
	}

	return Applied{}, false
}

func (r *Reconciler) moveProfile(id tree.ID, ch Change, newName string) (Applied, bool) {
	p, err := r.tree.Profile(id)
	if err != nil {
		return Applied{}, false
	}

	oldName := p.Name

	// A move within the watched namespace preserves identity whether the
	// destination is the same game or another known one. Only a destination
	// whose parent is no tracked game degrades to delete+create.
	destParent, ok := r.tree.FindByPath(filepath.Dir(ch.Path))
	if !ok || destParent.Kind != tree.KindGame {
		r.applyRemove(Change{Type: ChangeRemove, Path: ch.OldPath})

		cls, err := r.roots.Classify(ch.Path)
		if err != nil {
			return Applied{}, false
		}

		return r.applyCreate(Change{Type: ChangeCreate, Path: ch.Path, IsDir: true}, cls)
	}

	if destParent.ID == p.GameID {
		if err := r.tree.RenameProfile(id, newName, ch.Path); err != nil {
			r.logger.Warn("applying profile rename", slog.String("error", err.Error()))
			return Applied{}, false
		}
	} else {
		if err := r.tree.MoveProfile(id, destParent.ID, newName, ch.Path); err != nil {
			r.logger.Warn("applying profile move", slog.String("error", err.Error()))
			return Applied{}, false
		}
	}

	g, _ := r.tree.Game(p.GameID)

	return Applied{
		Type: ChangeMove, Kind: tree.KindProfile, ID: id,
		Name: newName, OldName: oldName, Game: gameName(g),
	}, true
}

func (r *Reconciler) moveSave(id tree.ID, ch Change, newName string) (Applied, bool) {
	s, err := r.tree.Save(id)
	if err != nil {
		return Applied{}, false
	}

	oldName := s.Name

	destRef, ok := r.tree.FindByPath(filepath.Dir(ch.Path))
	if !ok || destRef.Kind != tree.KindProfile {
		r.logger.Warn("save moved into unknown directory", slog.String("path", ch.Path))
		return Applied{}, false
	}

	if destRef.ID == s.ProfileID {
		if err := r.tree.RenameSave(id, newName, ch.Path); err != nil {
			r.logger.Warn("applying save rename", slog.String("error", err.Error()))
			return Applied{}, false
		}
	} else {
		if err := r.tree.MoveSave(id, destRef.ID, ch.Path); err != nil {
			r.logger.Warn("applying save move", slog.String("error", err.Error()))
			return Applied{}, false
		}
	}

	destProfile, _ := r.tree.Profile(destRef.ID)

	var g *tree.Game
	if destProfile != nil {
		g, _ = r.tree.Game(destProfile.GameID)
	}

	return Applied{
		Type: ChangeMove, Kind: tree.KindSave, ID: id,
		Name: newName, OldName: oldName,
		Game: gameName(g), Profile: profileName(destProfile),
	}, true
}

func (r *Reconciler) applyModify(ch Change) (Applied, bool) {
	ref, ok := r.tree.FindByPath(ch.Path)
	if !ok || ref.Kind != tree.KindSave {
		return Applied{}, false
	}

	s, err := r.tree.Save(ref.ID)
	if err != nil {
		return Applied{}, false
	}

	info, err := os.Stat(ch.Path)
	if err != nil {
		// Transient stat failure: keep last-known metadata.
		r.logger.Debug("stat failed for modified save",
			slog.String("path", ch.Path), slog.String("error", err.Error()))

		return Applied{}, false
	}

	s.ModTime = info.ModTime()
	s.Size = info.Size()

	p, _ := r.tree.Profile(s.ProfileID)

	var g *tree.Game
	if p != nil {
		g, _ = r.tree.Game(p.GameID)
	}

	return Applied{
		Type: ChangeModify, Kind: tree.KindSave, ID: s.ID,
		Name: s.Name, Game: gameName(g), Profile: profileName(p),
	}, true
}

// ownerGame resolves the game owning a profile path, preferring the root's
// binding and falling back to the parent-path index.
func (r *Reconciler) ownerGame(cls Class, parent string) (tree.ID, bool) {
	if cls.GameID != "" {
		return cls.GameID, true
	}

	ref, ok := r.tree.FindByPath(parent)
	if !ok || ref.Kind != tree.KindGame {
		return "", false
	}

	return ref.ID, true
}

func gameName(g *tree.Game) string {
	if g == nil {
		return ""
	}

	return g.Name
}

func profileName(p *tree.Profile) string {
	if p == nil {
		return ""
	}

	return p.Name
}
