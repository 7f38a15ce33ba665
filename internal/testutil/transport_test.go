package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordingTransport_RecordsPerConnection(t *testing.T) {
	tr := NewRecordingTransport()

	require.NoError(t, tr.Send(1, "a"))
	require.NoError(t, tr.Send(2, "b"))
	require.NoError(t, tr.Send(1, "c"))

	assert.Equal(t, []string{"a", "c"}, tr.SentTo(1))
	assert.Equal(t, "b", tr.Last(2))
	assert.Equal(t, "", tr.Last(3))
	assert.Len(t, tr.Take(), 3)
	assert.Empty(t, tr.Frames())
}

func TestRecordingTransport_BlockAndFail(t *testing.T) {
	tr := NewRecordingTransport()

	assert.True(t, tr.CanSend(1))
	tr.Block(1)
	assert.False(t, tr.CanSend(1))
	tr.Unblock(1)
	assert.True(t, tr.CanSend(1))

	tr.FailSends(2)
	assert.ErrorIs(t, tr.Send(2, "x"), ErrSendFailed)
	assert.Empty(t, tr.SentTo(2))
}

func TestBatchTransport_MakeBatch(t *testing.T) {
	bt := &BatchTransport{RecordingTransport: NewRecordingTransport(), Next: 100}

	assert.EqualValues(t, 100, bt.MakeBatch())
	assert.EqualValues(t, 101, bt.MakeBatch())
	assert.Len(t, bt.Launched, 2)

	failing := &BatchTransport{RecordingTransport: NewRecordingTransport()}
	assert.EqualValues(t, 0, failing.MakeBatch())
	assert.Empty(t, failing.Launched)
}

func TestMemoryFiles(t *testing.T) {
	m := NewMemoryFiles()
	require.NoError(t, m.WriteFile("b.png", []byte{1}))
	require.NoError(t, m.WriteFile("a.svg", []byte("<svg/>")))

	data, ok := m.Get("a.svg")
	require.True(t, ok)
	assert.Equal(t, "<svg/>", string(data))
	assert.Equal(t, []string{"a.svg", "b.png"}, m.Names())
}

func TestProducer(t *testing.T) {
	p := &Producer{}
	s, err := p.RenderSnapshot()
	require.NoError(t, err)
	assert.Equal(t, "snapshot-1", s)

	p.Fail = true
	_, err = p.RenderSnapshot()
	assert.ErrorIs(t, err, ErrRender)
}
