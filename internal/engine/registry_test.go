package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AttachOrderAndDuplicates(t *testing.T) {
	r := newRegistry()
	assert.False(t, r.HadConnection())

	require.NotNil(t, r.Attach(3))
	require.NotNil(t, r.Attach(1))
	assert.Nil(t, r.Attach(3), "duplicate attach should be rejected")

	ids := []ConnID{}
	for _, c := range r.All() {
		ids = append(ids, c.id)
	}
	assert.Equal(t, []ConnID{3, 1}, ids, "attach order preserved")
	assert.True(t, r.HadConnection())
}

func TestRegistry_Detach(t *testing.T) {
	r := newRegistry()
	r.Attach(1)
	r.Attach(2)
	r.Attach(3)

	assert.True(t, r.Detach(2))
	assert.False(t, r.Detach(2), "second detach is a no-op")
	assert.Nil(t, r.Find(2))
	assert.Equal(t, 2, r.Len())

	r.Detach(1)
	r.Detach(3)
	assert.Equal(t, 0, r.Len())
	assert.True(t, r.HadConnection(), "had-connection is sticky")
}

func TestRegistry_ReattachStartsFresh(t *testing.T) {
	r := newRegistry()
	c := r.Attach(1)
	c.drawReady = true
	c.recordDelivery(4)

	r.Detach(1)
	c = r.Attach(1)
	assert.False(t, c.drawReady)
	assert.Equal(t, uint64(0), c.delivered)
}

func TestRegistry_MinDelivered(t *testing.T) {
	r := newRegistry()
	_, ok := r.MinDelivered()
	assert.False(t, ok, "no minimum without connections")

	a := r.Attach(1)
	b := r.Attach(2)
	a.recordDelivery(5)
	b.recordDelivery(3)

	lowest, ok := r.MinDelivered()
	require.True(t, ok)
	assert.Equal(t, uint64(3), lowest)
}

func TestConnection_DeliveredNeverDecreases(t *testing.T) {
	c := &Connection{id: 1}

	assert.True(t, c.recordDelivery(2))
	assert.False(t, c.recordDelivery(1), "stale ack ignored")
	assert.False(t, c.recordDelivery(2), "duplicate ack ignored")
	assert.True(t, c.recordDelivery(7))
	assert.Equal(t, uint64(7), c.info().DeliveredVersion)
}
