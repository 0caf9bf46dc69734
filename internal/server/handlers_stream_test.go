package server

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXAddXLenXRange(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	id1 := run(e, conn, "XADD", "s", "1-1", "f", "v1")
	require.False(t, id1.IsError(), "XADD failed: %s", id1.String)
	assert.Equal(t, "1-1", string(id1.String))

	// ids must increase
	res := run(e, conn, "XADD", "s", "1-1", "f", "v")
	require.True(t, res.IsError())
	assert.Contains(t, string(res.String), "equal or smaller")

	run(e, conn, "XADD", "s", "1-2", "f", "v2")
	run(e, conn, "XADD", "s", "2-1", "f", "v3")

	if res := run(e, conn, "XLEN", "s"); res.Integer != 3 {
		t.Errorf("XLEN expected 3, got %d", res.Integer)
	}

	res = run(e, conn, "XRANGE", "s", "-", "+")
	require.Len(t, res.Array, 3)
	assert.Equal(t, "1-1", string(res.Array[0].Array[0].String))

	res = run(e, conn, "XRANGE", "s", "1-2", "+")
	require.Len(t, res.Array, 2)

	res = run(e, conn, "XREVRANGE", "s", "+", "-")
	require.Len(t, res.Array, 3)
	assert.Equal(t, "2-1", string(res.Array[0].Array[0].String))

	res = run(e, conn, "XRANGE", "s", "-", "+", "COUNT", "2")
	require.Len(t, res.Array, 2)

	// auto ids are monotonic within a pinned millisecond
	fixedClock(e)
	a := run(e, conn, "XADD", "s", "*", "f", "v")
	b := run(e, conn, "XADD", "s", "*", "f", "v")
	require.False(t, a.IsError())
	require.False(t, b.IsError())
	assert.NotEqual(t, string(a.String), string(b.String))
}

func TestXDelXTrim(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "XADD", "s", "1-1", "f", "a")
	run(e, conn, "XADD", "s", "2-1", "f", "b")
	run(e, conn, "XADD", "s", "3-1", "f", "c")

	if res := run(e, conn, "XDEL", "s", "2-1", "9-9"); res.Integer != 1 {
		t.Errorf("XDEL expected 1, got %d", res.Integer)
	}
	if res := run(e, conn, "XLEN", "s"); res.Integer != 2 {
		t.Errorf("XLEN after XDEL expected 2, got %d", res.Integer)
	}

	run(e, conn, "XADD", "s", "4-1", "f", "d")
	if res := run(e, conn, "XTRIM", "s", "MAXLEN", "2"); res.Integer != 1 {
		t.Errorf("XTRIM expected 1 evicted, got %d", res.Integer)
	}
	if res := run(e, conn, "XTRIM", "s", "MINID", "4"); res.Integer != 1 {
		t.Errorf("XTRIM MINID expected 1 evicted, got %d", res.Integer)
	}

	// a stream emptied by XDEL still exists
	run(e, conn, "XDEL", "s", "4-1")
	if res := run(e, conn, "EXISTS", "s"); res.Integer != 1 {
		t.Errorf("empty stream must persist")
	}
}

func TestConsumerGroupFlow(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "XADD", "s", "1-1", "f", "a")
	run(e, conn, "XADD", "s", "2-1", "f", "b")
	run(e, conn, "XADD", "s", "3-1", "f", "c")

	require.Equal(t, "OK", string(run(e, conn, "XGROUP", "CREATE", "s", "g", "0").String))

	res := run(e, conn, "XGROUP", "CREATE", "s", "g", "0")
	require.True(t, res.IsError())
	assert.Equal(t, "BUSYGROUP Consumer Group name already exists", string(res.String))

	res = run(e, conn, "XREADGROUP", "GROUP", "g", "c", "COUNT", "2", "STREAMS", "s", ">")
	require.Len(t, res.Array, 1)
	entries := res.Array[0].Array[1].Array
	require.Len(t, entries, 2)
	assert.Equal(t, "1-1", string(entries[0].Array[0].String))
	assert.Equal(t, "2-1", string(entries[1].Array[0].String))

	// PEL now holds the two delivered ids
	pending := run(e, conn, "XPENDING", "s", "g")
	assert.Equal(t, int64(2), pending.Array[0].Integer)

	if res := run(e, conn, "XACK", "s", "g", "1-1"); res.Integer != 1 {
		t.Errorf("XACK expected 1, got %d", res.Integer)
	}
	pending = run(e, conn, "XPENDING", "s", "g")
	assert.Equal(t, int64(1), pending.Array[0].Integer)

	// reading the history serves this consumer's PEL
	res = run(e, conn, "XREADGROUP", "GROUP", "g", "c", "STREAMS", "s", "0")
	require.Len(t, res.Array, 1)
	entries = res.Array[0].Array[1].Array
	require.Len(t, entries, 1)
	assert.Equal(t, "2-1", string(entries[0].Array[0].String))

	// unknown group
	res = run(e, conn, "XREADGROUP", "GROUP", "nope", "c", "STREAMS", "s", ">")
	require.True(t, res.IsError())
	assert.True(t, strings.HasPrefix(string(res.String), "NOGROUP"))
}

func TestXClaimAndAutoclaim(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()
	fixedClock(e)

	run(e, conn, "XADD", "s", "1-1", "f", "a")
	run(e, conn, "XGROUP", "CREATE", "s", "g", "0")
	run(e, conn, "XREADGROUP", "GROUP", "g", "alice", "STREAMS", "s", ">")

	res := run(e, conn, "XCLAIM", "s", "g", "bob", "0", "1-1")
	require.Len(t, res.Array, 1)
	assert.Equal(t, "1-1", string(res.Array[0].Array[0].String))

	ext := run(e, conn, "XPENDING", "s", "g", "-", "+", "10")
	require.Len(t, ext.Array, 1)
	assert.Equal(t, "bob", string(ext.Array[0].Array[1].String))

	res = run(e, conn, "XAUTOCLAIM", "s", "g", "carol", "0", "0")
	require.Len(t, res.Array, 3)
	assert.Equal(t, "0-0", string(res.Array[0].String))
	require.Len(t, res.Array[1].Array, 1)

	// consumer bookkeeping
	res = run(e, conn, "XINFO", "GROUPS", "s")
	require.Len(t, res.Array, 1)
}

func TestXInfoStreamAndSetID(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "XADD", "s", "5-1", "f", "v")
	res := run(e, conn, "XINFO", "STREAM", "s")
	require.False(t, res.IsError())

	require.Equal(t, "OK", string(run(e, conn, "XSETID", "s", "42-0").String))
	id := run(e, conn, "XADD", "s", "*", "f", "v")
	require.False(t, id.IsError())

	res = run(e, conn, "XSETID", "s", "1-0")
	require.True(t, res.IsError())
}
