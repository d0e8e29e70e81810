package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalUnmarshal(t *testing.T) {
	t.Run("absent key stays absent", func(t *testing.T) {
		var p TodoPatch
		require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
		assert.False(t, p.Title.Present)
		assert.True(t, p.Empty())
	})

	t.Run("explicit null is present with nil value", func(t *testing.T) {
		var p TodoPatch
		require.NoError(t, json.Unmarshal([]byte(`{"due_date": null}`), &p))
		assert.True(t, p.DueDate.Present)
		assert.Nil(t, p.DueDate.Value)
		assert.False(t, p.Empty())
	})

	t.Run("value is present and set", func(t *testing.T) {
		var p TodoPatch
		require.NoError(t, json.Unmarshal([]byte(`{"title": "Buy milk", "completed": true}`), &p))
		require.True(t, p.Title.Present)
		require.NotNil(t, p.Title.Value)
		assert.Equal(t, "Buy milk", *p.Title.Value)
		require.True(t, p.Completed.Present)
		assert.True(t, *p.Completed.Value)
		assert.False(t, p.Priority.Present)
	})

	t.Run("type mismatch errors", func(t *testing.T) {
		var p TodoPatch
		assert.Error(t, json.Unmarshal([]byte(`{"completed": "yes"}`), &p))
	})
}

func TestOptionalMarshal(t *testing.T) {
	b, err := json.Marshal(Set("hello"))
	require.NoError(t, err)
	assert.Equal(t, `"hello"`, string(b))

	b, err = json.Marshal(SetNull[string]())
	require.NoError(t, err)
	assert.Equal(t, `null`, string(b))
}

func TestPatchEmpty(t *testing.T) {
	assert.True(t, UserPatch{}.Empty())
	assert.False(t, UserPatch{Email: Set("a@b.co")}.Empty())
	assert.True(t, CategoryPatch{}.Empty())
	assert.False(t, CategoryPatch{Color: SetNull[string]()}.Empty())
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(10, 3, 0)
	assert.Equal(t, 10, p.Total)
	assert.True(t, p.HasMore)

	p = NewPagination(10, 5, 5)
	assert.False(t, p.HasMore)

	p = NewPagination(0, 50, 0)
	assert.False(t, p.HasMore)
}

func TestValidPriority(t *testing.T) {
	assert.True(t, ValidPriority(PriorityLow))
	assert.True(t, ValidPriority(PriorityMedium))
	assert.True(t, ValidPriority(PriorityHigh))
	assert.False(t, ValidPriority("urgent"))
	assert.False(t, ValidPriority(""))
}
