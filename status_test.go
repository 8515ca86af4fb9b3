package taskgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus_IsSuccess(t *testing.T) {
	assert.True(t, Success("ok").IsSuccess())
	assert.False(t, Fail("no").IsSuccess())
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.True(t, Success("").IsTerminal())
	assert.True(t, Fail("").IsTerminal())
	assert.True(t, ErrorStatus("").IsTerminal())
	assert.True(t, Cancel("").IsTerminal())
	assert.False(t, Info("").IsTerminal())
	assert.False(t, Warn("").IsTerminal())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "SUCCESS", Success("").String())
	assert.Equal(t, "FAIL: boom", Fail("boom").String())
}
