package vkcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageLinkedChain(t *testing.T) {
	u := NewUsage("root", 0)
	_, err := u.GetLinked()
	assert.Error(t, err)
	assert.False(t, u.HasNext())

	u.Linked = NewUsage("child", 0)
	assert.True(t, u.HasNext())
	linked, err := u.GetLinked()
	require.NoError(t, err)
	assert.Equal(t, "child", linked.Name)
}

func TestUsagePropertyDefaults(t *testing.T) {
	u := NewUsage("device", 4)
	assert.Equal(t, 3, u.IntOr("FramesInFlight", 3))
	assert.True(t, u.BoolOr("Debug", true))
	assert.Equal(t, "x", u.StringOr("Name", "x"))

	u.IntProps["FramesInFlight"] = 2
	assert.Equal(t, 2, u.IntOr("FramesInFlight", 3))
}

func TestTuningFromUsageOverridesDefaults(t *testing.T) {
	def := DefaultDeviceTuning()
	assert.Equal(t, 2, def.FramesInFlight)

	u := NewUsage("device", 4)
	u.IntProps["FramesInFlight"] = 3
	u.IntProps["WorkerThreads"] = 8

	tuning := TuningFromUsage(u)
	assert.Equal(t, 3, tuning.FramesInFlight)
	assert.Equal(t, 8, tuning.WorkerThreads)
	assert.Equal(t, def.DescriptorSetsPerPool, tuning.DescriptorSetsPerPool)
}

func TestTuningFromNilUsageReturnsDefaults(t *testing.T) {
	assert.Equal(t, DefaultDeviceTuning(), TuningFromUsage(nil))
}
