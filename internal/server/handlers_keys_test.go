package server

import (
	"testing"
	"time"
)

func TestExpireFamily(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()
	advance := fixedClock(e)

	if res := run(e, conn, "EXPIRE", "missing", "10"); res.Integer != 0 {
		t.Errorf("EXPIRE on missing key expected 0, got %d", res.Integer)
	}

	run(e, conn, "SET", "k", "v")
	if res := run(e, conn, "EXPIRE", "k", "100"); res.Integer != 1 {
		t.Errorf("EXPIRE expected 1")
	}
	if res := run(e, conn, "TTL", "k"); res.Integer != 100 {
		t.Errorf("TTL expected 100, got %d", res.Integer)
	}

	// NX fails when a TTL exists, XX succeeds
	if res := run(e, conn, "EXPIRE", "k", "50", "NX"); res.Integer != 0 {
		t.Errorf("EXPIRE NX with existing TTL expected 0")
	}
	if res := run(e, conn, "EXPIRE", "k", "50", "XX"); res.Integer != 1 {
		t.Errorf("EXPIRE XX expected 1")
	}
	// GT only extends
	if res := run(e, conn, "EXPIRE", "k", "10", "GT"); res.Integer != 0 {
		t.Errorf("EXPIRE GT with shorter TTL expected 0")
	}
	if res := run(e, conn, "EXPIRE", "k", "500", "GT"); res.Integer != 1 {
		t.Errorf("EXPIRE GT with longer TTL expected 1")
	}
	if res := run(e, conn, "EXPIRE", "k", "10", "NX", "GT"); !res.IsError() {
		t.Errorf("EXPIRE NX GT must be rejected")
	}

	// EXPIRE 0 deletes immediately
	if res := run(e, conn, "EXPIRE", "k", "0"); res.Integer != 1 {
		t.Errorf("EXPIRE 0 expected 1")
	}
	if res := run(e, conn, "EXISTS", "k"); res.Integer != 0 {
		t.Errorf("EXPIRE 0 must delete the key")
	}

	run(e, conn, "SET", "p", "v", "PX", "100")
	if res := run(e, conn, "PERSIST", "p"); res.Integer != 1 {
		t.Errorf("PERSIST expected 1")
	}
	advance(time.Second)
	if res := run(e, conn, "GET", "p"); string(res.String) != "v" {
		t.Errorf("persisted key must survive")
	}
}

func TestTypeRenameCopy(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "SET", "s", "v")
	run(e, conn, "LPUSH", "l", "v")
	if res := run(e, conn, "TYPE", "s"); string(res.String) != "string" {
		t.Errorf("TYPE string got %s", res.String)
	}
	if res := run(e, conn, "TYPE", "l"); string(res.String) != "list" {
		t.Errorf("TYPE list got %s", res.String)
	}
	if res := run(e, conn, "TYPE", "none"); string(res.String) != "none" {
		t.Errorf("TYPE missing got %s", res.String)
	}

	if res := run(e, conn, "RENAME", "missing", "x"); !res.IsError() {
		t.Errorf("RENAME missing source must fail")
	}
	run(e, conn, "SET", "a", "1")
	run(e, conn, "RENAME", "a", "b")
	if res := run(e, conn, "GET", "b"); string(res.String) != "1" {
		t.Errorf("RENAME lost the value")
	}
	if res := run(e, conn, "EXISTS", "a"); res.Integer != 0 {
		t.Errorf("RENAME left the source")
	}

	run(e, conn, "SET", "c", "2")
	if res := run(e, conn, "RENAMENX", "b", "c"); res.Integer != 0 {
		t.Errorf("RENAMENX onto existing key expected 0")
	}

	if res := run(e, conn, "COPY", "b", "b2"); res.Integer != 1 {
		t.Errorf("COPY expected 1")
	}
	if res := run(e, conn, "GET", "b2"); string(res.String) != "1" {
		t.Errorf("COPY value wrong")
	}
	if res := run(e, conn, "COPY", "b", "c"); res.Integer != 0 {
		t.Errorf("COPY without REPLACE onto existing expected 0")
	}
	if res := run(e, conn, "COPY", "b", "c", "REPLACE"); res.Integer != 1 {
		t.Errorf("COPY REPLACE expected 1")
	}
	if res := run(e, conn, "COPY", "b", "b"); !res.IsError() {
		t.Errorf("self COPY must be refused")
	}
}

func TestKeysScanDbsize(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "MSET", "one", "1", "two", "2", "three", "3", "four", "4")
	res := run(e, conn, "KEYS", "t*")
	if len(res.Array) != 2 {
		t.Errorf("KEYS t* expected 2 matches, got %d", len(res.Array))
	}
	res = run(e, conn, "KEYS", "*o*")
	if len(res.Array) != 3 {
		t.Errorf("KEYS *o* expected 3 matches, got %d", len(res.Array))
	}
	if res := run(e, conn, "DBSIZE"); res.Integer != 4 {
		t.Errorf("DBSIZE expected 4, got %d", res.Integer)
	}

	// drain a full SCAN
	seen := map[string]bool{}
	cursor := "0"
	for {
		res := run(e, conn, "SCAN", cursor, "COUNT", "2")
		cursor = string(res.Array[0].String)
		for _, it := range res.Array[1].Array {
			seen[string(it.String)] = true
		}
		if cursor == "0" {
			break
		}
	}
	if len(seen) != 4 {
		t.Errorf("SCAN should visit all 4 keys, saw %d", len(seen))
	}

	run(e, conn, "FLUSHDB")
	if res := run(e, conn, "DBSIZE"); res.Integer != 0 {
		t.Errorf("FLUSHDB left %d keys", res.Integer)
	}
}

func TestSelectAndMove(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "SET", "k", "v0")
	run(e, conn, "SELECT", "1")
	if res := run(e, conn, "GET", "k"); !res.IsNull {
		t.Errorf("databases must be isolated")
	}
	run(e, conn, "SET", "k2", "v1")
	if res := run(e, conn, "MOVE", "k2", "0"); res.Integer != 1 {
		t.Errorf("MOVE expected 1")
	}
	run(e, conn, "SELECT", "0")
	if res := run(e, conn, "GET", "k2"); string(res.String) != "v1" {
		t.Errorf("MOVE lost the value")
	}
	if res := run(e, conn, "SELECT", "99"); !res.IsError() {
		t.Errorf("SELECT out of range must fail")
	}
}

func TestObjectEncoding(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "SET", "n", "12345")
	if res := run(e, conn, "OBJECT", "ENCODING", "n"); string(res.String) != "int" {
		t.Errorf("int encoding, got %s", res.String)
	}
	run(e, conn, "SET", "s", "short")
	if res := run(e, conn, "OBJECT", "ENCODING", "s"); string(res.String) != "embstr" {
		t.Errorf("embstr encoding, got %s", res.String)
	}

	run(e, conn, "SADD", "ints", "1", "2", "3")
	if res := run(e, conn, "OBJECT", "ENCODING", "ints"); string(res.String) != "intset" {
		t.Errorf("intset encoding, got %s", res.String)
	}
	run(e, conn, "SADD", "strs", "a")
	if res := run(e, conn, "OBJECT", "ENCODING", "strs"); string(res.String) != "listpack" {
		t.Errorf("set listpack encoding, got %s", res.String)
	}

	run(e, conn, "ZADD", "z", "1", "a")
	if res := run(e, conn, "OBJECT", "ENCODING", "z"); string(res.String) != "listpack" {
		t.Errorf("zset listpack encoding, got %s", res.String)
	}
	for i := 0; i < 200; i++ {
		run(e, conn, "ZADD", "z", "1", "member"+string(rune('a'+i%26))+string(rune('0'+i/26)))
	}
	if res := run(e, conn, "OBJECT", "ENCODING", "z"); string(res.String) != "skiplist" {
		t.Errorf("zset skiplist encoding, got %s", res.String)
	}

	if res := run(e, conn, "OBJECT", "ENCODING", "missing"); !res.IsError() {
		t.Errorf("OBJECT ENCODING on missing key must fail")
	}
}
