package ctxmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditLogApplyAndLatest(t *testing.T) {
	l := NewEditLog()
	_, ok := l.Latest(3, 0)
	assert.False(t, ok)

	require.NoError(t, l.Apply(3, 0, "text", []string{"first"}, nil, 100, EditReadFileTool))
	require.NoError(t, l.Apply(3, 0, "text", []string{"second"}, nil, 200, EditReadFileTool))

	latest, ok := l.Latest(3, 0)
	require.True(t, ok)
	assert.Equal(t, []string{"second"}, latest.Content)
	assert.Equal(t, int64(200), latest.Timestamp)

	assert.True(t, l.HasBlock(3, 0))
	assert.True(t, l.HasMessage(3))
	assert.False(t, l.HasBlock(3, 1))
}

func TestEditLogRejectsNonMonotonicTimestamps(t *testing.T) {
	l := NewEditLog()
	require.NoError(t, l.Apply(3, 0, "text", []string{"a"}, nil, 200, EditReadFileTool))
	err := l.Apply(3, 0, "text", []string{"b"}, nil, 100, EditReadFileTool)
	assert.Error(t, err)
}

func TestEditLogAllowsTiedTimestamps(t *testing.T) {
	l := NewEditLog()
	require.NoError(t, l.Apply(3, 0, "text", []string{"a"}, nil, 200, EditReadFileTool))
	require.NoError(t, l.Apply(3, 0, "text", []string{"b"}, nil, 200, EditReadFileTool))
	latest, ok := l.Latest(3, 0)
	require.True(t, ok)
	assert.Equal(t, []string{"b"}, latest.Content)
}

func TestEditedIndicesAreSorted(t *testing.T) {
	l := NewEditLog()
	require.NoError(t, l.Apply(5, 2, "text", []string{"x"}, nil, 1, EditFileMention))
	require.NoError(t, l.Apply(5, 0, "text", []string{"y"}, nil, 1, EditFileMention))
	require.NoError(t, l.Apply(3, 0, "text", []string{"z"}, nil, 1, EditFileMention))

	assert.Equal(t, []int{3, 5}, l.EditedMessageIndices())
	assert.Equal(t, []int{0, 2}, l.EditedBlockIndices(5))
}

func TestPruneAfterIsIdempotent(t *testing.T) {
	l := NewEditLog()
	require.NoError(t, l.Apply(3, 0, "text", []string{"a"}, nil, 100, EditReadFileTool))
	require.NoError(t, l.Apply(3, 0, "text", []string{"b"}, nil, 200, EditReadFileTool))
	require.NoError(t, l.Apply(4, 1, "text", []string{"c"}, nil, 300, EditFileMention))

	l.PruneAfter(150)
	first, err := l.Serialize()
	require.NoError(t, err)

	latest, ok := l.Latest(3, 0)
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, latest.Content)
	assert.False(t, l.HasMessage(4))

	l.PruneAfter(150)
	second, err := l.Serialize()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	l := NewEditLog()
	require.NoError(t, l.Apply(2, 0, "text", []string{"hello"}, nil, 10, EditReadFileTool))
	require.NoError(t, l.Apply(4, 1, "text", []string{"a", "b"}, [][]string{{"x.go"}, {"x.go", "y.go"}}, 20, EditFileMention))

	data, err := l.Serialize()
	require.NoError(t, err)

	restored, err := Deserialize(data)
	require.NoError(t, err)

	latest, ok := restored.Latest(2, 0)
	require.True(t, ok)
	assert.Equal(t, []string{"hello"}, latest.Content)

	latest2, ok := restored.Latest(4, 1)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, latest2.Content)
	assert.Equal(t, [][]string{{"x.go"}, {"x.go", "y.go"}}, latest2.Metadata)
}

func TestDeserializeEmptyData(t *testing.T) {
	l, err := Deserialize(nil)
	require.NoError(t, err)
	assert.Empty(t, l.EditedMessageIndices())
}

func TestDeserializeToleratesTrailingEmptyArrays(t *testing.T) {
	// Missing metadata and even missing content are tolerated; readers fill
	// in zero values rather than failing.
	data := []byte(`[[2, [1, [[0, [[10, "text"]]]]]]]`)
	l, err := Deserialize(data)
	require.NoError(t, err)
	latest, ok := l.Latest(2, 0)
	require.True(t, ok)
	assert.Equal(t, int64(10), latest.Timestamp)
	assert.Equal(t, "text", latest.UpdateType)
	assert.Empty(t, latest.Content)
}
