package presence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnknownUserIsOffline(t *testing.T) {
	tr := NewTracker()

	assert.False(t, tr.Online("u-1"))
	st := tr.StatusOf("u-1")
	assert.False(t, st.Online)
	assert.True(t, st.LastSeen.IsZero())
}

func TestApplyTracksTransitions(t *testing.T) {
	tr := NewTracker()

	tr.Apply("u-1", true)
	assert.True(t, tr.Online("u-1"))

	tr.Apply("u-1", false)
	assert.False(t, tr.Online("u-1"))
	assert.False(t, tr.StatusOf("u-1").LastSeen.IsZero(), "going offline stamps last seen")
}

func TestOfflinePushForUnknownUserHasNoLastSeen(t *testing.T) {
	tr := NewTracker()

	// the server may push offline for a user we never saw online
	tr.Apply("u-1", false)
	assert.True(t, tr.StatusOf("u-1").LastSeen.IsZero())
}

func TestOnChangeFiresOnlyOnTransitions(t *testing.T) {
	tr := NewTracker()

	var seen []Status
	tr.OnChange(func(st Status) { seen = append(seen, st) })

	tr.Apply("u-1", true)
	tr.Apply("u-1", true) // repeat push, no transition
	tr.Apply("u-1", false)

	assert.Len(t, seen, 2)
	assert.True(t, seen[0].Online)
	assert.False(t, seen[1].Online)
}

func TestResetDropsAllState(t *testing.T) {
	tr := NewTracker()
	tr.Apply("u-1", true)

	tr.Reset()

	assert.False(t, tr.Online("u-1"))
	assert.True(t, tr.StatusOf("u-1").LastSeen.IsZero())
}
