package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiExecBasics(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	require.Equal(t, "OK", string(run(e, conn, "MULTI").String))
	assert.Equal(t, "QUEUED", string(run(e, conn, "INCR", "x").String))
	assert.Equal(t, "QUEUED", string(run(e, conn, "INCR", "x").String))

	res := run(e, conn, "EXEC")
	require.Len(t, res.Array, 2)
	assert.Equal(t, int64(1), res.Array[0].Integer)
	assert.Equal(t, int64(2), res.Array[1].Integer)

	// the transaction state is gone
	res = run(e, conn, "EXEC")
	require.True(t, res.IsError())
	assert.Equal(t, "ERR EXEC without MULTI", string(res.String))
}

func TestMultiErrors(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "MULTI")
	res := run(e, conn, "MULTI")
	require.True(t, res.IsError())
	assert.Equal(t, "ERR MULTI calls can not be nested", string(res.String))

	res = run(e, conn, "WATCH", "k")
	require.True(t, res.IsError())
	assert.Equal(t, "ERR WATCH inside MULTI is not allowed", string(res.String))

	// a queue-time error dirties the transaction
	res = run(e, conn, "NOSUCHCMD")
	require.True(t, res.IsError())
	res = run(e, conn, "EXEC")
	require.True(t, res.IsError())
	assert.Equal(t, "EXECABORT Transaction discarded because of previous errors.", string(res.String))

	// runtime errors land in their slot, later commands still run
	run(e, conn, "SET", "s", "str")
	run(e, conn, "MULTI")
	run(e, conn, "LPUSH", "s", "v")
	run(e, conn, "SET", "after", "ok")
	res = run(e, conn, "EXEC")
	require.Len(t, res.Array, 2)
	assert.True(t, res.Array[0].IsError())
	assert.Equal(t, "OK", string(res.Array[1].String))
	assert.Equal(t, "ok", string(run(e, conn, "GET", "after").String))
}

func TestDiscard(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	res := run(e, conn, "DISCARD")
	require.True(t, res.IsError())
	assert.Equal(t, "ERR DISCARD without MULTI", string(res.String))

	run(e, conn, "MULTI")
	run(e, conn, "SET", "k", "v")
	require.Equal(t, "OK", string(run(e, conn, "DISCARD").String))
	assert.True(t, run(e, conn, "GET", "k").IsNull)
}

func TestWatchInvalidation(t *testing.T) {
	e := setupEngine()
	alice := e.NewConn()
	bob := e.NewConn()

	run(e, alice, "WATCH", "x")
	run(e, bob, "SET", "x", "1")

	run(e, alice, "MULTI")
	run(e, alice, "GET", "x")
	res := run(e, alice, "EXEC")
	assert.True(t, res.IsNull, "EXEC after foreign write must return nil")

	// outside the transaction the write is visible
	assert.Equal(t, "1", string(run(e, alice, "GET", "x").String))
}

func TestWatchUnmodifiedPasses(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "SET", "x", "v")
	run(e, conn, "WATCH", "x")
	run(e, conn, "MULTI")
	run(e, conn, "GET", "x")
	res := run(e, conn, "EXEC")
	require.Len(t, res.Array, 1)
	assert.Equal(t, "v", string(res.Array[0].String))
}

func TestWatchDeleteRecreate(t *testing.T) {
	e := setupEngine()
	alice := e.NewConn()
	bob := e.NewConn()

	run(e, bob, "SET", "x", "1")
	run(e, alice, "WATCH", "x")
	// delete and recreate with the same content still invalidates
	run(e, bob, "DEL", "x")
	run(e, bob, "SET", "x", "1")

	run(e, alice, "MULTI")
	run(e, alice, "GET", "x")
	assert.True(t, run(e, alice, "EXEC").IsNull)
}

func TestUnwatch(t *testing.T) {
	e := setupEngine()
	alice := e.NewConn()
	bob := e.NewConn()

	run(e, alice, "WATCH", "x")
	run(e, bob, "SET", "x", "1")
	run(e, alice, "UNWATCH")

	run(e, alice, "MULTI")
	run(e, alice, "GET", "x")
	res := run(e, alice, "EXEC")
	require.Len(t, res.Array, 1)
}

func TestResetClearsTransaction(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "MULTI")
	run(e, conn, "SET", "k", "v")
	assert.Equal(t, "RESET", string(run(e, conn, "RESET").String))
	res := run(e, conn, "EXEC")
	assert.True(t, res.IsError())
}
