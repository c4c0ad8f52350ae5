package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShipMaskAllows(t *testing.T) {
	mask := ShipMask(1<<ShipWarbird | 1<<ShipLeviathan)
	require.True(t, mask.Allows(ShipWarbird))
	require.True(t, mask.Allows(ShipLeviathan))
	require.False(t, mask.Allows(ShipJavelin))
	require.False(t, mask.Allows(ShipSpec))
}

func TestShipMaskLowestAllowed(t *testing.T) {
	mask := ShipMask(1<<ShipSpider | 1<<ShipTerrier)
	ship, ok := mask.LowestAllowed()
	require.True(t, ok)
	require.Equal(t, ShipSpider, ship)

	empty := ShipMask(0)
	_, ok = empty.LowestAllowed()
	require.False(t, ok)
}

func TestExtraDataSetGetDelete(t *testing.T) {
	var ed ExtraData
	tok := NewSlotToken()

	_, ok := ed.Get(tok)
	require.False(t, ok)

	ed.Set(tok, "payload")
	v, ok := ed.Get(tok)
	require.True(t, ok)
	require.Equal(t, "payload", v)

	ed.Delete(tok)
	_, ok = ed.Get(tok)
	require.False(t, ok)
}

func TestExtraDataTokensAreDistinct(t *testing.T) {
	var ed ExtraData
	tokA := NewSlotToken()
	tokB := NewSlotToken()

	ed.Set(tokA, "a")
	ed.Set(tokB, "b")

	va, _ := ed.Get(tokA)
	vb, _ := ed.Get(tokB)
	require.Equal(t, "a", va)
	require.Equal(t, "b", vb)
}

func TestPlayerConnFlagsRoundTrip(t *testing.T) {
	p := NewPlayer(1, "Foo", ClientKindGameBinaryA)
	require.Equal(t, ShipSpec, p.CurrentShip())
	require.False(t, p.InGame())

	p.SetConnFlags(ConnFlags{SuppressSecurity: true, IsContinuum: true})
	require.Equal(t, ConnFlags{SuppressSecurity: true, IsContinuum: true}, p.ConnFlags())

	p.SetInGame(true)
	require.True(t, p.InGame())
}

func TestFreqDisbandable(t *testing.T) {
	required := NewFreq(0)
	required.Required = true
	require.True(t, required.Empty())
	require.False(t, required.Disbandable())

	remembered := NewFreq(1)
	remembered.Remembered = true
	require.False(t, remembered.Disbandable())

	plain := NewFreq(2)
	require.True(t, plain.Disbandable())

	p := NewPlayer(1, "Foo", ClientKindGameBinaryA)
	plain.Add(p)
	require.False(t, plain.Disbandable())
	require.Equal(t, 1, plain.Len())

	plain.Remove(p)
	require.True(t, plain.Disbandable())
}
