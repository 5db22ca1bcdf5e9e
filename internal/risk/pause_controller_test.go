package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPauseControllerScopesToEntryOrExit(t *testing.T) {
	pc := NewPauseController("")
	pc.Pause(PauseScopeEntry, "testing")

	paused, _ := pc.CheckPaused("entry")
	assert.True(t, paused)

	paused, _ = pc.CheckPaused("exit")
	assert.False(t, paused)
}

func TestPauseControllerAllScopeBlocksEverything(t *testing.T) {
	pc := NewPauseController("")
	pc.Pause(PauseScopeAll, "kill switch")

	paused, _ := pc.CheckPaused("entry")
	assert.True(t, paused)
	paused, _ = pc.CheckPaused("exit")
	assert.True(t, paused)
}

func TestAdminPauseRequiresMatchingKey(t *testing.T) {
	pc := NewPauseController("secret")

	err := pc.AdminPause("wrong", PauseScopeAll, "unauthorized")
	require.Error(t, err)
	paused, _ := pc.CheckPaused("entry")
	assert.False(t, paused)

	require.NoError(t, pc.AdminPause("secret", PauseScopeAll, "authorized"))
	paused, _ = pc.CheckPaused("entry")
	assert.True(t, paused)

	require.NoError(t, pc.AdminResume("secret"))
	paused, _ = pc.CheckPaused("entry")
	assert.False(t, paused)
}

func TestAdminPauseDisabledWithoutConfiguredKey(t *testing.T) {
	pc := NewPauseController("")
	err := pc.AdminPause("anything", PauseScopeAll, "reason")
	require.Error(t, err)
}
