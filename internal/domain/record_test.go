package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_MarshalPreservesOrder(t *testing.T) {
	p := Payload{
		{Name: "省份", Value: "河南省"},
		{Name: "断面名称", Value: "花园口"},
		{Name: "溶解氧", Value: 8.12},
		{Name: "备注", Value: nil},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"省份":"河南省","断面名称":"花园口","溶解氧":8.12,"备注":null}`, string(data))
}

func TestPayload_RoundTrip(t *testing.T) {
	p := Payload{
		{Name: "b", Value: "two"},
		{Name: "a", Value: 1.0},
		{Name: "c", Value: nil},
	}

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var back Payload
	require.NoError(t, json.Unmarshal(data, &back))

	require.Len(t, back, 3)
	assert.Equal(t, "b", back[0].Name)
	assert.Equal(t, "two", back[0].Value)
	assert.Equal(t, "a", back[1].Name)
	assert.Equal(t, 1.0, back[1].Value)
	assert.Equal(t, "c", back[2].Name)
	assert.Nil(t, back[2].Value)
}

func TestPayload_UnmarshalRejectsNonObject(t *testing.T) {
	var p Payload
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &p))
}

func TestPayload_Get(t *testing.T) {
	p := Payload{{Name: "x", Value: "1"}, {Name: "x", Value: "2"}}

	v, ok := p.Get("x")
	assert.True(t, ok)
	assert.Equal(t, "1", v, "first occurrence wins")

	_, ok = p.Get("missing")
	assert.False(t, ok)
}

func TestPayload_String(t *testing.T) {
	p := Payload{
		{Name: "name", Value: "花园口"},
		{Name: "count", Value: 3.0},
		{Name: "ratio", Value: 0.5},
		{Name: "empty", Value: nil},
	}

	assert.Equal(t, "花园口", p.String("name"))
	assert.Equal(t, "3", p.String("count"))
	assert.Equal(t, "0.5", p.String("ratio"))
	assert.Equal(t, "", p.String("empty"))
	assert.Equal(t, "", p.String("missing"))
}

func TestRecord_Eligible(t *testing.T) {
	assert.False(t, Record{Address: "x"}.Eligible())
	assert.True(t, Record{Address: "x", Coord: &Coordinate{Lat: 1, Lon: 2}}.Eligible())
}

func TestDeriveAddress(t *testing.T) {
	p := Payload{
		{Name: "省份", Value: "河南省"},
		{Name: "断面名称", Value: " 花园口 "},
		{Name: "水质类别", Value: "II"},
	}

	assert.Equal(t, "河南省花园口", DeriveAddress(p, DefaultAddressFields))
}

func TestDeriveAddress_SkipsBlankAndMissing(t *testing.T) {
	p := Payload{
		{Name: "省份", Value: "  "},
		{Name: "断面名称", Value: "花园口"},
	}

	assert.Equal(t, "花园口", DeriveAddress(p, []string{"省份", "城市", "断面名称"}))
	assert.Equal(t, "", DeriveAddress(Payload{}, DefaultAddressFields))
}
