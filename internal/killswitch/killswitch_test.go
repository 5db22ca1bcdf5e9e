package killswitch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonitorTripsOnSentinelFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emergency.stop")

	var gotReason string
	tripped := make(chan struct{}, 1)
	m := NewMonitor(path, 20*time.Millisecond, func(reason string) {
		gotReason = reason
		tripped <- struct{}{}
	})
	m.Start()
	defer m.Stop()

	require.NoError(t, Trigger(path, "manual test stop"))

	select {
	case <-tripped:
	case <-time.After(2 * time.Second):
		t.Fatal("kill switch did not trip within timeout")
	}

	assert.True(t, m.Active())
	assert.Contains(t, gotReason, "manual test stop")

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "sentinel file should be consumed")
}

func TestStatusReadsWithoutConsuming(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emergency.stop")
	require.NoError(t, Trigger(path, "check only"))

	active, reason := Status(path)
	assert.True(t, active)
	assert.Contains(t, reason, "check only")

	_, err := os.Stat(path)
	assert.NoError(t, err, "Status must not delete the file")
}

func TestClearResetsTrippedState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "emergency.stop")
	tripped := make(chan struct{}, 1)
	m := NewMonitor(path, 20*time.Millisecond, func(string) { tripped <- struct{}{} })
	m.Start()
	defer m.Stop()

	require.NoError(t, Trigger(path, "stop"))
	<-tripped

	m.Clear()
	assert.False(t, m.Active())
	assert.Empty(t, m.Reason())
}
