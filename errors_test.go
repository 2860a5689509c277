package vkcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestWrapResultClassifiesSwapchainConditions(t *testing.T) {
	outOfDate := WrapResult(vk.ErrorOutOfDate)
	e := outOfDate.(*Error)
	assert.Equal(t, KindSwapchainOutOfDate, e.Kind)
	assert.True(t, IsRecoverable(outOfDate))

	suboptimal := WrapResult(vk.Suboptimal)
	assert.True(t, IsRecoverable(suboptimal))

	deviceLost := WrapResult(vk.ErrorDeviceLost)
	assert.False(t, IsRecoverable(deviceLost))
	assert.Equal(t, KindDeviceLost, deviceLost.(*Error).Kind)
}

func TestWrapResultSuccessIsNil(t *testing.T) {
	assert.Nil(t, WrapResult(vk.Success))
}

func TestIsRecoverableRejectsPlainErrors(t *testing.T) {
	assert.False(t, IsRecoverable(assertAnError{}))
}

type assertAnError struct{}

func (assertAnError) Error() string { return "not a vkcore error" }

func TestNewErrorfCarriesReason(t *testing.T) {
	err := NewErrorf(KindGraphInvalid, "pass %q references unregistered resource %q", "blur", "color")
	e := err.(*Error)
	assert.Equal(t, KindGraphInvalid, e.Kind)
	assert.Contains(t, e.Error(), "blur")
	assert.Contains(t, e.Error(), "GraphInvalid")
}

func TestKindStringKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "DeviceLost", KindDeviceLost.String())
	assert.Equal(t, "None", Kind(-1).String())
}
