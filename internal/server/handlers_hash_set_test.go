package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashBasics(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	if res := run(e, conn, "HSET", "h", "f1", "v1", "f2", "v2"); res.Integer != 2 {
		t.Errorf("HSET expected 2 new fields, got %d", res.Integer)
	}
	if res := run(e, conn, "HSET", "h", "f1", "v1b"); res.Integer != 0 {
		t.Errorf("HSET update expected 0, got %d", res.Integer)
	}
	if res := run(e, conn, "HGET", "h", "f1"); string(res.String) != "v1b" {
		t.Errorf("HGET got %s", res.String)
	}
	if res := run(e, conn, "HGET", "h", "nope"); !res.IsNull {
		t.Errorf("HGET missing field expected nil")
	}
	if res := run(e, conn, "HLEN", "h"); res.Integer != 2 {
		t.Errorf("HLEN expected 2, got %d", res.Integer)
	}

	// zero pairs is an arity error
	if res := run(e, conn, "HSET", "h"); !res.IsError() {
		t.Errorf("HSET with no pairs must fail")
	}
	if res := run(e, conn, "HSET", "h", "f"); !res.IsError() {
		t.Errorf("HSET with dangling field must fail")
	}

	res := run(e, conn, "HGETALL", "h")
	assert.Len(t, res.Array, 4)

	res = run(e, conn, "HMGET", "h", "f1", "zz", "f2")
	assert.Len(t, res.Array, 3)
	assert.True(t, res.Array[1].IsNull)

	if res := run(e, conn, "HSETNX", "h", "f1", "x"); res.Integer != 0 {
		t.Errorf("HSETNX on existing field expected 0")
	}
	if res := run(e, conn, "HSETNX", "h", "f3", "x"); res.Integer != 1 {
		t.Errorf("HSETNX on new field expected 1")
	}

	run(e, conn, "HDEL", "h", "f1", "f2", "f3")
	if res := run(e, conn, "EXISTS", "h"); res.Integer != 0 {
		t.Errorf("emptied hash must be deleted")
	}
}

func TestHashIncr(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	if res := run(e, conn, "HINCRBY", "h", "n", "5"); res.Integer != 5 {
		t.Errorf("HINCRBY expected 5, got %d", res.Integer)
	}
	if res := run(e, conn, "HINCRBY", "h", "n", "-11"); res.Integer != -6 {
		t.Errorf("HINCRBY expected -6, got %d", res.Integer)
	}
	if res := run(e, conn, "HINCRBYFLOAT", "h", "f", "10.5"); string(res.String) != "10.5" {
		t.Errorf("HINCRBYFLOAT got %s", res.String)
	}
	run(e, conn, "HSET", "h", "s", "abc")
	if res := run(e, conn, "HINCRBY", "h", "s", "1"); !res.IsError() {
		t.Errorf("HINCRBY on non-integer field must fail")
	}
}

func TestSetBasics(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	if res := run(e, conn, "SADD", "s", "x"); res.Integer != 1 {
		t.Errorf("first SADD expected 1, got %d", res.Integer)
	}
	if res := run(e, conn, "SADD", "s", "x"); res.Integer != 0 {
		t.Errorf("duplicate SADD expected 0, got %d", res.Integer)
	}
	if res := run(e, conn, "SCARD", "s"); res.Integer != 1 {
		t.Errorf("SCARD expected 1, got %d", res.Integer)
	}
	if res := run(e, conn, "SISMEMBER", "s", "x"); res.Integer != 1 {
		t.Errorf("SISMEMBER expected 1")
	}
	if res := run(e, conn, "SISMEMBER", "s", "y"); res.Integer != 0 {
		t.Errorf("SISMEMBER missing expected 0")
	}

	res := run(e, conn, "SMISMEMBER", "s", "x", "y")
	assert.Equal(t, int64(1), res.Array[0].Integer)
	assert.Equal(t, int64(0), res.Array[1].Integer)

	run(e, conn, "SREM", "s", "x")
	if res := run(e, conn, "EXISTS", "s"); res.Integer != 0 {
		t.Errorf("emptied set must be deleted")
	}
}

func TestSetAlgebra(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "SADD", "a", "1", "2", "3", "4")
	run(e, conn, "SADD", "b", "3", "4", "5")

	if res := run(e, conn, "SDIFF", "a", "b"); len(res.Array) != 2 {
		t.Errorf("SDIFF expected 2 members, got %d", len(res.Array))
	}
	if res := run(e, conn, "SINTER", "a", "b"); len(res.Array) != 2 {
		t.Errorf("SINTER expected 2 members, got %d", len(res.Array))
	}
	if res := run(e, conn, "SUNION", "a", "b"); len(res.Array) != 5 {
		t.Errorf("SUNION expected 5 members, got %d", len(res.Array))
	}
	if res := run(e, conn, "SINTERCARD", "2", "a", "b"); res.Integer != 2 {
		t.Errorf("SINTERCARD expected 2, got %d", res.Integer)
	}
	if res := run(e, conn, "SINTERCARD", "2", "a", "b", "LIMIT", "1"); res.Integer != 1 {
		t.Errorf("SINTERCARD LIMIT expected 1, got %d", res.Integer)
	}

	if res := run(e, conn, "SINTERSTORE", "dst", "a", "b"); res.Integer != 2 {
		t.Errorf("SINTERSTORE expected 2, got %d", res.Integer)
	}
	if res := run(e, conn, "SDIFFSTORE", "dst", "b", "a"); res.Integer != 1 {
		t.Errorf("SDIFFSTORE expected 1, got %d", res.Integer)
	}
	// storing an empty result removes the destination
	if res := run(e, conn, "SINTERSTORE", "dst", "a", "void"); res.Integer != 0 {
		t.Errorf("empty SINTERSTORE expected 0")
	}
	if res := run(e, conn, "EXISTS", "dst"); res.Integer != 0 {
		t.Errorf("empty store must delete the destination")
	}
}

func TestSMoveAndSampling(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "SADD", "src", "m")
	if res := run(e, conn, "SMOVE", "src", "dst", "m"); res.Integer != 1 {
		t.Errorf("SMOVE expected 1")
	}
	if res := run(e, conn, "SISMEMBER", "dst", "m"); res.Integer != 1 {
		t.Errorf("SMOVE did not land")
	}
	if res := run(e, conn, "SMOVE", "src", "dst", "m"); res.Integer != 0 {
		t.Errorf("SMOVE of missing member expected 0")
	}

	run(e, conn, "SADD", "r", "a", "b", "c")
	res := run(e, conn, "SRANDMEMBER", "r", "2")
	assert.Len(t, res.Array, 2)
	// negative count samples with repetition and exceeds cardinality
	res = run(e, conn, "SRANDMEMBER", "r", "-10")
	assert.Len(t, res.Array, 10)

	res = run(e, conn, "SPOP", "r", "3")
	assert.Len(t, res.Array, 3)
	if res := run(e, conn, "EXISTS", "r"); res.Integer != 0 {
		t.Errorf("popped-empty set must be deleted")
	}
}
