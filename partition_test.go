package taskgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartition_RoundRobin(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	groups, err := Partition(items, 3)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []int{1, 4, 7}, groups[0])
	assert.Equal(t, []int{2, 5}, groups[1])
	assert.Equal(t, []int{3, 6}, groups[2])
}

func TestPartition_KGreaterThanItems_ClampsGroupCount(t *testing.T) {
	items := []string{"a", "b"}
	groups, err := Partition(items, 5)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"a"}, groups[0])
	assert.Equal(t, []string{"b"}, groups[1])
}

func TestPartition_EmptyInput(t *testing.T) {
	groups, err := Partition([]int{}, 4)
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestPartition_InvalidK(t *testing.T) {
	_, err := Partition([]int{1, 2}, 0)
	assert.Error(t, err)

	_, err = Partition([]int{1, 2}, -1)
	assert.Error(t, err)
}
