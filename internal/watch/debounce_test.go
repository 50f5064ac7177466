package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testWindow = 50 * time.Millisecond

func TestDebounceCreateThenModifyStaysCreate(t *testing.T) {
	base := time.Now()
	d := NewDebouncer(testWindow)

	d.Add(Change{Type: ChangeCreate, Path: "/data/g/p/slot.sav"}, base)
	d.Add(Change{Type: ChangeModify, Path: "/data/g/p/slot.sav"}, base.Add(10*time.Millisecond))

	due := d.Due(base.Add(100 * time.Millisecond))
	require.Len(t, due, 1)
	require.Equal(t, ChangeCreate, due[0].Type)
}

func TestDebounceLastKindWins(t *testing.T) {
	base := time.Now()
	d := NewDebouncer(testWindow)

	d.Add(Change{Type: ChangeModify, Path: "/data/g/p/slot.sav"}, base)
	d.Add(Change{Type: ChangeRemove, Path: "/data/g/p/slot.sav"}, base.Add(5*time.Millisecond))

	due := d.Due(base.Add(100 * time.Millisecond))
	require.Len(t, due, 1)
	require.Equal(t, ChangeRemove, due[0].Type)
}

func TestDebounceMoveAbsorbsModify(t *testing.T) {
	base := time.Now()
	d := NewDebouncer(testWindow)

	d.Add(Change{Type: ChangeMove, Path: "/data/g/p/new.sav", OldPath: "/data/g/p/old.sav"}, base)
	d.Add(Change{Type: ChangeModify, Path: "/data/g/p/new.sav"}, base.Add(5*time.Millisecond))

	due := d.Due(base.Add(100 * time.Millisecond))
	require.Len(t, due, 1)
	require.Equal(t, ChangeMove, due[0].Type)
	require.Equal(t, "/data/g/p/old.sav", due[0].OldPath)
}

func TestDebounceMoveDropsPendingSourcePath(t *testing.T) {
	base := time.Now()
	d := NewDebouncer(testWindow)

	d.Add(Change{Type: ChangeModify, Path: "/data/g/p/old.sav"}, base)
	d.Add(Change{Type: ChangeMove, Path: "/data/g/p/new.sav", OldPath: "/data/g/p/old.sav"}, base.Add(5*time.Millisecond))

	due := d.Due(base.Add(100 * time.Millisecond))
	require.Len(t, due, 1)
	require.Equal(t, ChangeMove, due[0].Type)
}

func TestDebounceWindowRestartsPerChange(t *testing.T) {
	base := time.Now()
	d := NewDebouncer(testWindow)

	d.Add(Change{Type: ChangeModify, Path: "/data/g/p/slot.sav"}, base)
	d.Add(Change{Type: ChangeModify, Path: "/data/g/p/slot.sav"}, base.Add(40*time.Millisecond))

	// The original deadline has passed but the restarted window has not.
	require.Empty(t, d.Due(base.Add(60*time.Millisecond)))

	require.Len(t, d.Due(base.Add(95*time.Millisecond)), 1)
}

func TestDebounceDueArrivalOrder(t *testing.T) {
	base := time.Now()
	d := NewDebouncer(testWindow)

	d.Add(Change{Type: ChangeCreate, Path: "/data/g/p/a.sav"}, base)
	d.Add(Change{Type: ChangeCreate, Path: "/data/g/p/b.sav"}, base.Add(time.Millisecond))
	d.Add(Change{Type: ChangeCreate, Path: "/data/g/p/c.sav"}, base.Add(2*time.Millisecond))

	due := d.Due(base.Add(100 * time.Millisecond))
	require.Len(t, due, 3)
	require.Equal(t, "/data/g/p/a.sav", due[0].Path)
	require.Equal(t, "/data/g/p/b.sav", due[1].Path)
	require.Equal(t, "/data/g/p/c.sav", due[2].Path)
}

func TestDebounceNextDeadline(t *testing.T) {
	base := time.Now()
	d := NewDebouncer(testWindow)

	_, found := d.Next()
	require.False(t, found)

	d.Add(Change{Type: ChangeCreate, Path: "/data/g/p/a.sav"}, base)
	d.Add(Change{Type: ChangeCreate, Path: "/data/g/p/b.sav"}, base.Add(20*time.Millisecond))

	next, found := d.Next()
	require.True(t, found)
	require.Equal(t, base.Add(testWindow), next)

	require.Equal(t, 2, d.Len())
}
