package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItems_ProduceJSON(t *testing.T) {
	m := NewItems("h1")
	m.Add("Set title", "SetTitle(\"x\")")
	m.AddChecked("Grid", "SetGrid(false)", true)

	assert.Equal(t, 2, m.Len())

	js, err := m.ProduceJSON()
	require.NoError(t, err)
	assert.Equal(t,
		`{"id":"h1","items":[{"e":"SetTitle(\"x\")","n":"Set title"},{"chk":true,"e":"SetGrid(false)","n":"Grid"}]}`,
		js)
}

func TestItems_Empty(t *testing.T) {
	js, err := NewItems("pad").ProduceJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"id":"pad","items":[]}`, js)
}

func TestItems_AllIsCopy(t *testing.T) {
	m := NewItems("x")
	m.Add("a", "A()")
	all := m.All()
	all[0].Name = "changed"
	assert.Equal(t, "a", m.All()[0].Name)
}
