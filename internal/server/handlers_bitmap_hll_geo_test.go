package server

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitOps(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	if res := run(e, conn, "SETBIT", "b", "7", "1"); res.Integer != 0 {
		t.Errorf("SETBIT expected old bit 0, got %d", res.Integer)
	}
	if res := run(e, conn, "GETBIT", "b", "7"); res.Integer != 1 {
		t.Errorf("GETBIT expected 1")
	}
	if res := run(e, conn, "GETBIT", "b", "100"); res.Integer != 0 {
		t.Errorf("GETBIT out of range expected 0")
	}
	if res := run(e, conn, "GET", "b"); string(res.String) != "\x01" {
		t.Errorf("bitmap bytes wrong: %q", res.String)
	}
	if res := run(e, conn, "SETBIT", "b", "7", "0"); res.Integer != 1 {
		t.Errorf("SETBIT expected old bit 1")
	}
	if res := run(e, conn, "SETBIT", "b", "7", "2"); !res.IsError() {
		t.Errorf("SETBIT with bit=2 must fail")
	}

	run(e, conn, "SET", "c", "foobar")
	if res := run(e, conn, "BITCOUNT", "c"); res.Integer != 26 {
		t.Errorf("BITCOUNT expected 26, got %d", res.Integer)
	}
	if res := run(e, conn, "BITCOUNT", "c", "1", "1"); res.Integer != 6 {
		t.Errorf("BITCOUNT byte range expected 6, got %d", res.Integer)
	}
	if res := run(e, conn, "BITCOUNT", "c", "5", "30", "BIT"); res.Integer != 17 {
		t.Errorf("BITCOUNT bit range expected 17, got %d", res.Integer)
	}

	run(e, conn, "SET", "p", "\xff\xf0\x00")
	if res := run(e, conn, "BITPOS", "p", "0"); res.Integer != 12 {
		t.Errorf("BITPOS 0 expected 12, got %d", res.Integer)
	}
	run(e, conn, "SET", "q", "\x00\x0f")
	if res := run(e, conn, "BITPOS", "q", "1"); res.Integer != 12 {
		t.Errorf("BITPOS 1 expected 12, got %d", res.Integer)
	}

	run(e, conn, "SET", "x", "abc")
	run(e, conn, "SET", "y", "abd")
	if res := run(e, conn, "BITOP", "AND", "dst", "x", "y"); res.Integer != 3 {
		t.Errorf("BITOP AND expected 3, got %d", res.Integer)
	}
	if res := run(e, conn, "BITOP", "XOR", "dst", "x", "y"); res.Integer != 3 {
		t.Errorf("BITOP XOR expected 3")
	}
	if res := run(e, conn, "BITOP", "NOT", "dst", "x", "y"); !res.IsError() {
		t.Errorf("BITOP NOT with two sources must fail")
	}
}

func TestHyperLogLog(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	if res := run(e, conn, "PFADD", "hll", "a", "b", "c"); res.Integer != 1 {
		t.Errorf("PFADD expected 1, got %d", res.Integer)
	}
	if res := run(e, conn, "PFADD", "hll", "a"); res.Integer != 0 {
		t.Errorf("PFADD duplicate expected 0, got %d", res.Integer)
	}
	if res := run(e, conn, "PFCOUNT", "hll"); res.Integer != 3 {
		t.Errorf("PFCOUNT expected 3, got %d", res.Integer)
	}

	run(e, conn, "PFADD", "hll2", "c", "d")
	if res := run(e, conn, "PFCOUNT", "hll", "hll2"); res.Integer != 4 {
		t.Errorf("union PFCOUNT expected 4, got %d", res.Integer)
	}

	require.Equal(t, "OK", string(run(e, conn, "PFMERGE", "m", "hll", "hll2").String))
	if res := run(e, conn, "PFCOUNT", "m"); res.Integer != 4 {
		t.Errorf("merged PFCOUNT expected 4, got %d", res.Integer)
	}

	// a plain string is not a valid HLL payload
	run(e, conn, "SET", "plain", "hi")
	res := run(e, conn, "PFCOUNT", "plain")
	require.True(t, res.IsError())
	assert.Contains(t, string(res.String), "not a valid HyperLogLog")

	// the HLL is stored as an ordinary string
	if res := run(e, conn, "TYPE", "hll"); string(res.String) != "string" {
		t.Errorf("HLL must be a string value")
	}
}

func TestGeoCommands(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	res := run(e, conn, "GEOADD", "geo",
		"13.361389", "38.115556", "Palermo",
		"15.087269", "37.502669", "Catania")
	require.False(t, res.IsError())
	assert.Equal(t, int64(2), res.Integer)

	// distance Palermo-Catania is about 166 km
	res = run(e, conn, "GEODIST", "geo", "Palermo", "Catania", "km")
	require.False(t, res.IsError())
	km, err := strconv.ParseFloat(string(res.String), 64)
	require.NoError(t, err)
	assert.InDelta(t, 166.27, km, 1.0)

	res = run(e, conn, "GEOPOS", "geo", "Palermo", "missing")
	require.Len(t, res.Array, 2)
	lon, _ := strconv.ParseFloat(string(res.Array[0].Array[0].String), 64)
	lat, _ := strconv.ParseFloat(string(res.Array[0].Array[1].String), 64)
	assert.InDelta(t, 13.361389, lon, 0.001)
	assert.InDelta(t, 38.115556, lat, 0.001)
	assert.True(t, res.Array[1].IsNull)

	res = run(e, conn, "GEOSEARCH", "geo", "FROMLONLAT", "15", "37", "BYRADIUS", "200", "km", "ASC")
	require.False(t, res.IsError())
	require.Len(t, res.Array, 2)
	assert.Equal(t, "Catania", string(res.Array[0].String))

	res = run(e, conn, "GEOSEARCH", "geo", "FROMMEMBER", "Palermo", "BYRADIUS", "1", "km")
	require.Len(t, res.Array, 1)

	res = run(e, conn, "GEOSEARCH", "geo", "FROMLONLAT", "15", "37", "BYBOX", "400", "400", "km", "ASC", "WITHDIST")
	require.False(t, res.IsError())
	require.NotEmpty(t, res.Array)
	require.Len(t, res.Array[0].Array, 2)

	res = run(e, conn, "GEOHASH", "geo", "Palermo")
	require.Len(t, res.Array, 1)
	assert.Len(t, string(res.Array[0].String), 11)

	res = run(e, conn, "GEOADD", "geo", "200", "100", "bad")
	assert.True(t, res.IsError())

	res = run(e, conn, "GEOSEARCHSTORE", "dst", "geo", "FROMLONLAT", "15", "37", "BYRADIUS", "500", "km")
	assert.Equal(t, int64(2), res.Integer)
	assert.Equal(t, int64(2), run(e, conn, "ZCARD", "dst").Integer)
}

func TestBZPopImmediateAndTimeout(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	// immediate pop when data exists
	run(e, conn, "ZADD", "z", "1", "a", "2", "b")
	res := run(e, conn, "BZPOPMIN", "z", "0")
	require.Len(t, res.Array, 3)
	assert.Equal(t, "z", string(res.Array[0].String))
	assert.Equal(t, "a", string(res.Array[1].String))
	assert.Equal(t, "1", string(res.Array[2].String))

	// timeout on empty key
	res = run(e, conn, "BZPOPMAX", "void", "0.05")
	assert.True(t, res.IsNull)
}
