package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeID(t *testing.T) {
	t.Run("new ids are unique and non-nil", func(t *testing.T) {
		a, b := NewNodeID(), NewNodeID()
		assert.False(t, a.IsNil())
		assert.NotEqual(t, a, b)
	})

	t.Run("nil id", func(t *testing.T) {
		assert.True(t, NilNodeID.IsNil())
		var zero NodeID
		assert.Equal(t, NilNodeID, zero)
	})

	t.Run("parse round trip", func(t *testing.T) {
		id := NewNodeID()
		parsed, err := ParseNodeID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
	})

	t.Run("parse rejects garbage", func(t *testing.T) {
		_, err := ParseNodeID("not-a-uuid")
		assert.Error(t, err)
	})

	t.Run("json uses canonical string", func(t *testing.T) {
		id := NewNodeID()
		data, err := json.Marshal(id)
		require.NoError(t, err)
		assert.Equal(t, `"`+id.String()+`"`, string(data))

		var back NodeID
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, id, back)
	})
}

func TestPortType(t *testing.T) {
	tests := []struct {
		in       PortType
		opposite PortType
		name     string
	}{
		{PortIn, PortOut, "in"},
		{PortOut, PortIn, "out"},
		{PortNone, PortNone, "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.opposite, tt.in.Opposite())
			assert.Equal(t, tt.name, tt.in.String())
		})
	}

	t.Run("text round trip", func(t *testing.T) {
		var pt PortType
		require.NoError(t, pt.UnmarshalText([]byte("out")))
		assert.Equal(t, PortOut, pt)
		assert.Error(t, pt.UnmarshalText([]byte("sideways")))
	})
}

func TestDataTypeEqual(t *testing.T) {
	a := DataType{ID: "number", Name: "Number"}
	b := DataType{ID: "number", Name: "Decimal"}
	c := DataType{ID: "text", Name: "Number"}

	assert.True(t, a.Equal(b), "equality is by id only")
	assert.False(t, a.Equal(c))
	assert.True(t, DataType{}.IsZero())
}

func TestConnectionID(t *testing.T) {
	left, right := NewNodeID(), NewNodeID()
	conn := NewConnectionID(
		PortRef{Node: left, Type: PortOut, Index: 1},
		PortRef{Node: right, Type: PortIn, Index: 2},
	)

	t.Run("sides", func(t *testing.T) {
		assert.Equal(t, PortRef{Node: left, Type: PortOut, Index: 1}, conn.Out())
		assert.Equal(t, PortRef{Node: right, Type: PortIn, Index: 2}, conn.In())
		assert.Equal(t, conn.In(), conn.Side(PortIn))
		assert.Equal(t, conn.Out(), conn.Side(PortOut))
	})

	t.Run("involves and other end", func(t *testing.T) {
		assert.True(t, conn.Involves(left))
		assert.True(t, conn.Involves(right))
		assert.False(t, conn.Involves(NewNodeID()))
		assert.Equal(t, right, conn.OtherEnd(left))
		assert.Equal(t, left, conn.OtherEnd(right))
	})

	t.Run("comparable as map key", func(t *testing.T) {
		set := map[ConnectionID]bool{conn: true}
		same := ConnectionID{Left: left, LeftPort: 1, Right: right, RightPort: 2}
		assert.True(t, set[same])
	})
}

func TestPositionMath(t *testing.T) {
	p := Position{X: 10, Y: 20}
	q := Position{X: 30, Y: 60}

	assert.Equal(t, Position{X: 40, Y: 80}, p.Add(q))
	assert.Equal(t, Position{X: -20, Y: -40}, p.Sub(q))
	assert.Equal(t, Position{X: 20, Y: 40}, Midpoint(p, q))
	assert.Equal(t, Position{X: 50, Y: 25}, Size{Width: 100, Height: 50}.Center())
}
