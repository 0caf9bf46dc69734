package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func zmembers(t *testing.T, e *Engine, conn *Conn, args ...string) []string {
	t.Helper()
	res := run(e, conn, args...)
	if res.IsError() {
		t.Fatalf("%v failed: %s", args, res.String)
	}
	out := make([]string, len(res.Array))
	for i, it := range res.Array {
		out[i] = string(it.String)
	}
	return out
}

func TestZAddScoreOrdering(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	if res := run(e, conn, "ZADD", "z", "2", "b", "1", "a", "3", "c"); res.Integer != 3 {
		t.Errorf("ZADD expected 3, got %d", res.Integer)
	}
	assert.Equal(t, []string{"a", "b", "c"}, zmembers(t, e, conn, "ZRANGE", "z", "0", "-1"))
	assert.Equal(t, []string{"c", "b", "a"}, zmembers(t, e, conn, "ZREVRANGE", "z", "0", "-1"))

	// same score orders by member bytes
	run(e, conn, "DEL", "z")
	run(e, conn, "ZADD", "z", "1", "bb", "1", "aa", "1", "cc")
	assert.Equal(t, []string{"aa", "bb", "cc"}, zmembers(t, e, conn, "ZRANGE", "z", "0", "-1"))

	if res := run(e, conn, "ZADD", "z", "nan", "m"); !res.IsError() ||
		string(res.String) != "ERR value is not a valid float" {
		t.Errorf("NaN score must be rejected with the canonical message, got %v", res)
	}
}

func TestZAddFlags(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "ZADD", "k", "1", "a", "2", "b")

	// GT prevents decreasing
	run(e, conn, "ZADD", "k", "XX", "GT", "0", "a")
	if res := run(e, conn, "ZSCORE", "k", "a"); string(res.String) != "1" {
		t.Errorf("ZADD XX GT must not decrease, score %s", res.String)
	}
	run(e, conn, "ZADD", "k", "XX", "GT", "5", "a")
	if res := run(e, conn, "ZSCORE", "k", "a"); string(res.String) != "5" {
		t.Errorf("ZADD XX GT should raise to 5, got %s", res.String)
	}

	// NX only creates
	run(e, conn, "ZADD", "k", "NX", "9", "a")
	if res := run(e, conn, "ZSCORE", "k", "a"); string(res.String) != "5" {
		t.Errorf("ZADD NX must not update, got %s", res.String)
	}
	if res := run(e, conn, "ZADD", "k", "NX", "XX", "1", "m"); !res.IsError() {
		t.Errorf("ZADD NX XX must be rejected")
	}
	if res := run(e, conn, "ZADD", "k", "NX", "GT", "1", "m"); !res.IsError() {
		t.Errorf("ZADD NX GT must be rejected")
	}

	// CH counts updates as well
	if res := run(e, conn, "ZADD", "k", "CH", "7", "a", "1", "new"); res.Integer != 2 {
		t.Errorf("ZADD CH expected 2, got %d", res.Integer)
	}

	// INCR returns the new score, nil when gated
	if res := run(e, conn, "ZADD", "k", "INCR", "2", "a"); string(res.String) != "9" {
		t.Errorf("ZADD INCR expected 9, got %s", res.String)
	}
	if res := run(e, conn, "ZADD", "k", "NX", "INCR", "2", "a"); !res.IsNull {
		t.Errorf("gated ZADD INCR expected nil, got %v", res)
	}
	if res := run(e, conn, "ZADD", "k", "INCR", "1", "a", "1", "b"); !res.IsError() {
		t.Errorf("ZADD INCR with two pairs must be rejected")
	}
}

func TestZRangeByScoreAndLex(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "ZADD", "z", "1", "a", "2", "b", "3", "c", "4", "d")

	assert.Equal(t, []string{"b", "c"}, zmembers(t, e, conn, "ZRANGEBYSCORE", "z", "2", "3"))
	assert.Equal(t, []string{"c"}, zmembers(t, e, conn, "ZRANGEBYSCORE", "z", "(2", "(4"))
	assert.Equal(t, []string{"a", "b", "c", "d"}, zmembers(t, e, conn, "ZRANGEBYSCORE", "z", "-inf", "+inf"))
	assert.Equal(t, []string{"c", "b"}, zmembers(t, e, conn, "ZREVRANGEBYSCORE", "z", "3", "2"))
	assert.Equal(t, []string{"b", "c"}, zmembers(t, e, conn, "ZRANGEBYSCORE", "z", "-inf", "+inf", "LIMIT", "1", "2"))

	if res := run(e, conn, "ZCOUNT", "z", "2", "3"); res.Integer != 2 {
		t.Errorf("ZCOUNT expected 2, got %d", res.Integer)
	}

	// lex ranges over a single-score set
	run(e, conn, "DEL", "z")
	run(e, conn, "ZADD", "z", "0", "a", "0", "b", "0", "c", "0", "d")
	assert.Equal(t, []string{"a", "b", "c", "d"}, zmembers(t, e, conn, "ZRANGEBYLEX", "z", "-", "+"))
	assert.Equal(t, []string{"b", "c"}, zmembers(t, e, conn, "ZRANGEBYLEX", "z", "[b", "[c"))
	assert.Equal(t, []string{"c", "d"}, zmembers(t, e, conn, "ZRANGEBYLEX", "z", "(b", "+"))
	assert.Equal(t, []string{"d", "c"}, zmembers(t, e, conn, "ZREVRANGEBYLEX", "z", "+", "(b"))
	if res := run(e, conn, "ZLEXCOUNT", "z", "-", "+"); res.Integer != 4 {
		t.Errorf("ZLEXCOUNT expected 4, got %d", res.Integer)
	}

	res := run(e, conn, "ZRANGEBYLEX", "z", "b", "c")
	if !res.IsError() || string(res.String) != "ERR min or max not valid string range item" {
		t.Errorf("bad lex bound must use the canonical message, got %v", res)
	}

	// modern ZRANGE spellings
	assert.Equal(t, []string{"b", "c"}, zmembers(t, e, conn, "ZRANGE", "z", "[b", "[c", "BYLEX"))
	run(e, conn, "DEL", "z")
	run(e, conn, "ZADD", "z", "1", "a", "2", "b", "3", "c")
	assert.Equal(t, []string{"c", "b"}, zmembers(t, e, conn, "ZRANGE", "z", "3", "2", "BYSCORE", "REV"))
}

func TestZRankRemovePop(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "ZADD", "z", "1", "a", "2", "b", "3", "c")
	if res := run(e, conn, "ZRANK", "z", "b"); res.Integer != 1 {
		t.Errorf("ZRANK expected 1, got %d", res.Integer)
	}
	if res := run(e, conn, "ZREVRANK", "z", "b"); res.Integer != 1 {
		t.Errorf("ZREVRANK expected 1, got %d", res.Integer)
	}
	if res := run(e, conn, "ZRANK", "z", "nope"); !res.IsNull {
		t.Errorf("ZRANK of missing member expected nil")
	}

	res := run(e, conn, "ZPOPMIN", "z")
	if len(res.Array) != 2 || string(res.Array[0].String) != "a" || string(res.Array[1].String) != "1" {
		t.Errorf("ZPOPMIN wrong: %v", res.Array)
	}
	res = run(e, conn, "ZPOPMAX", "z")
	if len(res.Array) != 2 || string(res.Array[0].String) != "c" {
		t.Errorf("ZPOPMAX wrong: %v", res.Array)
	}

	run(e, conn, "ZREM", "z", "b")
	if res := run(e, conn, "EXISTS", "z"); res.Integer != 0 {
		t.Errorf("emptied zset must be deleted")
	}

	run(e, conn, "ZADD", "r", "1", "a", "2", "b", "3", "c", "4", "d")
	if res := run(e, conn, "ZREMRANGEBYRANK", "r", "0", "1"); res.Integer != 2 {
		t.Errorf("ZREMRANGEBYRANK expected 2, got %d", res.Integer)
	}
	if res := run(e, conn, "ZREMRANGEBYSCORE", "r", "3", "3"); res.Integer != 1 {
		t.Errorf("ZREMRANGEBYSCORE expected 1, got %d", res.Integer)
	}
}

func TestZIncrAndStores(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	if res := run(e, conn, "ZINCRBY", "z", "5", "m"); string(res.String) != "5" {
		t.Errorf("ZINCRBY create expected 5, got %s", res.String)
	}
	if res := run(e, conn, "ZINCRBY", "z", "2.5", "m"); string(res.String) != "7.5" {
		t.Errorf("ZINCRBY expected 7.5, got %s", res.String)
	}

	run(e, conn, "ZADD", "a", "1", "x", "2", "y")
	run(e, conn, "ZADD", "b", "10", "y", "10", "z")

	if res := run(e, conn, "ZUNIONSTORE", "u", "2", "a", "b"); res.Integer != 3 {
		t.Errorf("ZUNIONSTORE expected 3, got %d", res.Integer)
	}
	if res := run(e, conn, "ZSCORE", "u", "y"); string(res.String) != "12" {
		t.Errorf("SUM aggregate expected 12, got %s", res.String)
	}

	if res := run(e, conn, "ZINTERSTORE", "i", "2", "a", "b", "AGGREGATE", "MAX"); res.Integer != 1 {
		t.Errorf("ZINTERSTORE expected 1, got %d", res.Integer)
	}
	if res := run(e, conn, "ZSCORE", "i", "y"); string(res.String) != "10" {
		t.Errorf("MAX aggregate expected 10, got %s", res.String)
	}

	if res := run(e, conn, "ZUNIONSTORE", "w", "2", "a", "b", "WEIGHTS", "2", "1"); res.Integer != 3 {
		t.Errorf("weighted union expected 3, got %d", res.Integer)
	}
	if res := run(e, conn, "ZSCORE", "w", "x"); string(res.String) != "2" {
		t.Errorf("weighted score expected 2, got %s", res.String)
	}

	if res := run(e, conn, "ZDIFFSTORE", "d", "2", "a", "b"); res.Integer != 1 {
		t.Errorf("ZDIFFSTORE expected 1, got %d", res.Integer)
	}

	if res := run(e, conn, "ZRANGESTORE", "rs", "a", "0", "-1"); res.Integer != 2 {
		t.Errorf("ZRANGESTORE expected 2, got %d", res.Integer)
	}
}
