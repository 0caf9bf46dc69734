package server

import (
	"strings"
	"testing"
	"time"

	"github.com/eternalApril/moonbeam/internal/resp"
)

func TestPing(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	tests := []struct {
		name     string
		args     []string
		wantType byte
		wantStr  string
	}{
		{"Simple PING", []string{"PING"}, resp.TypeSimpleString, "PONG"},
		{"PING with message", []string{"PING", "Hello"}, resp.TypeBulkString, "Hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(e, conn, tt.args...)
			if res.Type != tt.wantType {
				t.Errorf("got type %q, want %q", res.Type, tt.wantType)
			}
			if got := string(res.String); got != tt.wantStr {
				t.Errorf("got %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestBasicSetGetDel(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	res := run(e, conn, "GET", "mykey")
	if !res.IsNull {
		t.Errorf("expected null for missing key, got %v", res)
	}

	res = run(e, conn, "SET", "mykey", "myvalue")
	if string(res.String) != "OK" {
		t.Errorf("expected OK, got %s", res.String)
	}

	res = run(e, conn, "GET", "mykey")
	if string(res.String) != "myvalue" {
		t.Errorf("expected myvalue, got %s", res.String)
	}

	res = run(e, conn, "DEL", "mykey")
	if res.Integer != 1 {
		t.Errorf("expected 1 deleted, got %d", res.Integer)
	}

	res = run(e, conn, "GET", "mykey")
	if !res.IsNull {
		t.Errorf("expected null after delete, got %v", res)
	}
}

func TestSetNXXXAndGet(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	if res := run(e, conn, "SET", "k1", "v1", "NX"); string(res.String) != "OK" {
		t.Errorf("SET NX new key failed: %v", res)
	}
	if res := run(e, conn, "SET", "k1", "v2", "NX"); !res.IsNull {
		t.Errorf("SET NX existing key should return nil, got %v", res)
	}
	if res := run(e, conn, "GET", "k1"); string(res.String) != "v1" {
		t.Errorf("SET NX changed value despite failure")
	}

	if res := run(e, conn, "SET", "k2", "v2", "XX"); !res.IsNull {
		t.Errorf("SET XX missing key should return nil, got %v", res)
	}
	if res := run(e, conn, "SET", "k1", "v3", "XX"); string(res.String) != "OK" {
		t.Errorf("SET XX existing key failed")
	}

	// GET flag returns the previous value
	if res := run(e, conn, "SET", "k1", "v4", "GET"); string(res.String) != "v3" {
		t.Errorf("SET GET expected old value v3, got %s", res.String)
	}
	if res := run(e, conn, "SET", "new", "v", "GET"); !res.IsNull {
		t.Errorf("SET GET on missing key expected nil, got %v", res)
	}

	if res := run(e, conn, "SET", "k1", "v", "NX", "XX"); !res.IsError() {
		t.Errorf("SET NX XX should be a syntax error")
	}
}

func TestSetTTLAndKeepTTL(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()
	advance := fixedClock(e)

	run(e, conn, "SET", "k", "v", "EX", "10")
	if res := run(e, conn, "TTL", "k"); res.Integer != 10 {
		t.Errorf("expected TTL 10, got %d", res.Integer)
	}

	run(e, conn, "SET", "k", "v2", "KEEPTTL")
	if res := run(e, conn, "TTL", "k"); res.Integer != 10 {
		t.Errorf("KEEPTTL dropped the expiry, TTL %d", res.Integer)
	}

	// plain SET clears the TTL
	run(e, conn, "SET", "k", "v3")
	if res := run(e, conn, "TTL", "k"); res.Integer != -1 {
		t.Errorf("plain SET should clear TTL, got %d", res.Integer)
	}

	run(e, conn, "SET", "gone", "v", "PX", "50")
	advance(60 * time.Millisecond)
	if res := run(e, conn, "GET", "gone"); !res.IsNull {
		t.Errorf("key should have expired")
	}
	if res := run(e, conn, "TTL", "missing"); res.Integer != -2 {
		t.Errorf("TTL of missing key should be -2, got %d", res.Integer)
	}
}

func TestIncrDecr(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	if res := run(e, conn, "INCR", "n"); res.Integer != 1 {
		t.Errorf("INCR on missing key expected 1, got %d", res.Integer)
	}
	if res := run(e, conn, "INCRBY", "n", "9"); res.Integer != 10 {
		t.Errorf("INCRBY expected 10, got %d", res.Integer)
	}
	if res := run(e, conn, "DECR", "n"); res.Integer != 9 {
		t.Errorf("DECR expected 9, got %d", res.Integer)
	}

	run(e, conn, "SET", "s", "abc")
	if res := run(e, conn, "INCR", "s"); !res.IsError() ||
		string(res.String) != "ERR value is not an integer or out of range" {
		t.Errorf("INCR on non-integer: got %v", res)
	}

	// overflow leaves the value unchanged
	run(e, conn, "SET", "big", "9223372036854775807")
	if res := run(e, conn, "INCR", "big"); !res.IsError() {
		t.Errorf("INCR at MaxInt64 should overflow")
	}
	if res := run(e, conn, "GET", "big"); string(res.String) != "9223372036854775807" {
		t.Errorf("overflowing INCR must not change the value, got %s", res.String)
	}
}

func TestIncrByFloatFormatting(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "SET", "f", "10.5")
	if res := run(e, conn, "INCRBYFLOAT", "f", "0.1"); string(res.String) != "10.6" {
		t.Errorf("INCRBYFLOAT expected 10.6, got %s", res.String)
	}
	// trailing zeros are stripped
	run(e, conn, "SET", "g", "3.0")
	if res := run(e, conn, "INCRBYFLOAT", "g", "1.0"); string(res.String) != "4" {
		t.Errorf("INCRBYFLOAT expected 4, got %s", res.String)
	}
}

func TestSetRangeGetRange(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	// absent key is zero-padded
	if res := run(e, conn, "SETRANGE", "k", "5", "x"); res.Integer != 6 {
		t.Errorf("SETRANGE expected length 6, got %d", res.Integer)
	}
	if res := run(e, conn, "GET", "k"); string(res.String) != "\x00\x00\x00\x00\x00x" {
		t.Errorf("SETRANGE padding wrong: %q", res.String)
	}

	run(e, conn, "SET", "s", "Hello World")
	if res := run(e, conn, "GETRANGE", "s", "0", "4"); string(res.String) != "Hello" {
		t.Errorf("GETRANGE got %q", res.String)
	}
	if res := run(e, conn, "GETRANGE", "s", "-5", "-1"); string(res.String) != "World" {
		t.Errorf("GETRANGE negative got %q", res.String)
	}
}

func TestAppendStrlenMset(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	if res := run(e, conn, "APPEND", "a", "Hello "); res.Integer != 6 {
		t.Errorf("APPEND expected 6, got %d", res.Integer)
	}
	if res := run(e, conn, "APPEND", "a", "World"); res.Integer != 11 {
		t.Errorf("APPEND expected 11, got %d", res.Integer)
	}
	if res := run(e, conn, "STRLEN", "a"); res.Integer != 11 {
		t.Errorf("STRLEN expected 11, got %d", res.Integer)
	}

	run(e, conn, "MSET", "x", "1", "y", "2")
	res := run(e, conn, "MGET", "x", "y", "z")
	if len(res.Array) != 3 || string(res.Array[0].String) != "1" ||
		string(res.Array[1].String) != "2" || !res.Array[2].IsNull {
		t.Errorf("MGET wrong: %v", res.Array)
	}

	if res := run(e, conn, "MSETNX", "y", "9", "w", "9"); res.Integer != 0 {
		t.Errorf("MSETNX with existing key expected 0")
	}
	if res := run(e, conn, "EXISTS", "w"); res.Integer != 0 {
		t.Errorf("MSETNX must be all-or-nothing")
	}
}

func TestWrongTypeAndUnknown(t *testing.T) {
	e := setupEngine()
	conn := e.NewConn()

	run(e, conn, "SET", "k", "s")
	res := run(e, conn, "LPUSH", "k", "v")
	if !res.IsError() || !strings.HasPrefix(string(res.String), "WRONGTYPE") {
		t.Errorf("expected WRONGTYPE, got %v", res)
	}
	// the string survives the failed push
	if res := run(e, conn, "GET", "k"); string(res.String) != "s" {
		t.Errorf("value lost after type error")
	}

	res = run(e, conn, "NOSUCHCMD", "a")
	if !res.IsError() || !strings.HasPrefix(string(res.String), "ERR unknown command") {
		t.Errorf("expected unknown command error, got %v", res)
	}

	res = run(e, conn, "GET")
	if !res.IsError() || string(res.String) != "ERR wrong number of arguments for 'get' command" {
		t.Errorf("expected arity error, got %v", res)
	}
}
