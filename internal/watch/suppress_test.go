package watch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSuppressorMatchConsumesWindow(t *testing.T) {
	base := time.Now()
	s := NewSuppressor(2 * time.Second)

	s.Arm("/data/g/p/slot.sav", OpCreate, base)

	// First matching event is dropped, the window is consumed.
	require.True(t, s.Match("/data/g/p/slot.sav", OpCreate, base.Add(10*time.Millisecond)))

	// A second identical event is a real external change.
	require.False(t, s.Match("/data/g/p/slot.sav", OpCreate, base.Add(20*time.Millisecond)))
}

func TestSuppressorOpAndPathMustMatch(t *testing.T) {
	base := time.Now()
	s := NewSuppressor(2 * time.Second)

	s.Arm("/data/g/p/slot.sav", OpCreate, base)

	require.False(t, s.Match("/data/g/p/slot.sav", OpRemove, base))
	require.False(t, s.Match("/data/g/p/other.sav", OpCreate, base))

	// The original window is still live.
	require.True(t, s.Match("/data/g/p/slot.sav", OpCreate, base))
}

func TestSuppressorExpiry(t *testing.T) {
	base := time.Now()
	s := NewSuppressor(2 * time.Second)

	s.Arm("/data/g/p/slot.sav", OpCreate, base)

	require.False(t, s.Match("/data/g/p/slot.sav", OpCreate, base.Add(3*time.Second)))
	require.Zero(t, s.Pending(base.Add(3*time.Second)))
}

func TestSuppressorDistinctWindowsPerEvent(t *testing.T) {
	base := time.Now()
	s := NewSuppressor(2 * time.Second)

	// An executor rename arms both halves of the expected event pair.
	s.Arm("/data/g/p/old.sav", OpRenameFrom, base)
	s.Arm("/data/g/p/new.sav", OpCreate, base)

	require.Equal(t, 2, s.Pending(base))

	require.True(t, s.Match("/data/g/p/old.sav", OpRenameFrom, base))
	require.True(t, s.Match("/data/g/p/new.sav", OpCreate, base))
	require.Zero(t, s.Pending(base))
}

func TestSuppressorCleansPaths(t *testing.T) {
	base := time.Now()
	s := NewSuppressor(2 * time.Second)

	s.Arm("/data/g/p/../p/slot.sav", OpCreate, base)

	require.True(t, s.Match("/data/g/p/slot.sav", OpCreate, base))
}
