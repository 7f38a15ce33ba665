package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/viewsync/internal/menu"
)

func loadDemo(t *testing.T) *Document {
	t.Helper()
	d, err := Load("testdata/demo.yaml")
	require.NoError(t, err)
	return d
}

func TestLoad(t *testing.T) {
	d := loadDemo(t)

	assert.Equal(t, "Demo canvas", d.Title())
	assert.Equal(t, uint64(1), d.Version())

	_, ok := d.FindDrawable("h1")
	assert.True(t, ok)
	_, ok = d.FindDrawable("missing")
	assert.False(t, ok)
}

func TestDemo_FreshCopies(t *testing.T) {
	a, err := Demo()
	require.NoError(t, err)
	b, err := Demo()
	require.NoError(t, err)

	dr, ok := a.FindDrawable("h1")
	require.True(t, ok)
	require.NoError(t, dr.Execute("SetLineColor(4)"))

	assert.Equal(t, uint64(2), a.Version())
	assert.Equal(t, uint64(1), b.Version())
	color, _ := b.Attr("h1", "LineColor")
	assert.Equal(t, "2", color)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "title: x\nbogus: 1\n"},
		{"missing id", "objects:\n  - kind: h\n"},
		{"duplicate id", "objects:\n  - id: a\n  - id: a\n"},
		{"reserved id", "objects:\n  - id: canvas\n"},
		{"separator in id", "objects:\n  - id: a#1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestRenderSnapshot(t *testing.T) {
	d, err := Parse([]byte("title: T\nwidth: 10\nheight: 20\nobjects:\n  - id: a\n    kind: box\n    attrs:\n      Color: \"1\"\n"))
	require.NoError(t, err)

	got, err := d.RenderSnapshot()
	require.NoError(t, err)
	assert.Equal(t,
		`{"height":20,"objects":[{"attrs":{"Color":"1"},"id":"a","kind":"box","title":""}],"pad":"canvas","title":"T","version":1,"width":10}`,
		got)
}

func TestExecute_BumpsVersion(t *testing.T) {
	d := loadDemo(t)
	dr, _ := d.FindDrawable("h1")

	require.NoError(t, dr.Execute("SetLineColor(4)"))
	v, _ := d.Attr("h1", "LineColor")
	assert.Equal(t, "4", v)
	assert.Equal(t, uint64(2), d.Version())

	require.NoError(t, dr.Execute(`SetTitle("Landau fit");`))
	snap, err := d.RenderSnapshot()
	require.NoError(t, err)
	assert.Contains(t, snap, `"title":"Landau fit"`)
	assert.Equal(t, uint64(3), d.Version())
}

func TestExecute_Rejects(t *testing.T) {
	d := loadDemo(t)
	dr, _ := d.FindDrawable("h1")

	for _, expr := range []string{"Draw()", "SetColor", "Set(1)", `SetTitle("unterminated)`} {
		err := dr.Execute(expr)
		assert.ErrorIs(t, err, ErrUnknownExpression, expr)
	}
	assert.Equal(t, uint64(1), d.Version())
}

func TestPopulateMenu(t *testing.T) {
	d := loadDemo(t)
	dr, _ := d.FindDrawable("h1")

	items := menu.NewItems("h1")
	dr.PopulateMenu(items)

	all := items.All()
	require.Len(t, all, 3)
	assert.Equal(t, `SetTitle("Gaussian")`, all[0].Exec)
	assert.Equal(t, "SetLineColor(2)", all[1].Exec)
	assert.Equal(t, "Stats", all[2].Name)
	require.NotNil(t, all[2].Checked)
	assert.True(t, *all[2].Checked)
	assert.Equal(t, "SetStats(false)", all[2].Exec)
}

func TestTouch(t *testing.T) {
	d := loadDemo(t)
	assert.Equal(t, uint64(2), d.Touch())
	assert.Equal(t, uint64(2), d.Version())
}
