package storage

import (
	"math/rand"
	"testing"
	"time"
)

func newTestDB() (*DB, func(d time.Duration)) {
	now := time.UnixMilli(1_700_000_000_000)
	var counter uint64
	db := NewDB(0, func() time.Time { return now }, &counter)
	return db, func(d time.Duration) { now = now.Add(d) }
}

func TestLazyExpiration(t *testing.T) {
	db, advance := newTestDB()

	db.Put("k", NewStringEntity([]byte("v")))
	db.SetExpireAt("k", db.nowMs()+100)

	if db.Lookup("k") == nil {
		t.Fatalf("key should be alive before the deadline")
	}

	var expired []string
	db.OnExpired = func(_ int, key string) {
		expired = append(expired, key)
	}

	advance(150 * time.Millisecond)
	if db.Lookup("k") != nil {
		t.Fatalf("key must be gone after the deadline")
	}
	if len(expired) != 1 || expired[0] != "k" {
		t.Errorf("expected one expired callback, got %v", expired)
	}
	// a second read must not re-fire
	db.Lookup("k")
	if len(expired) != 1 {
		t.Errorf("expired callback fired twice")
	}
}

func TestTTLQueries(t *testing.T) {
	db, _ := newTestDB()

	if ttl := db.TTLms("missing"); ttl != -2 {
		t.Errorf("missing key TTL expected -2, got %d", ttl)
	}
	db.Put("k", NewStringEntity([]byte("v")))
	if ttl := db.TTLms("k"); ttl != -1 {
		t.Errorf("persistent key TTL expected -1, got %d", ttl)
	}
	db.SetExpireAt("k", db.nowMs()+5000)
	if ttl := db.TTLms("k"); ttl != 5000 {
		t.Errorf("TTL expected 5000, got %d", ttl)
	}
	if !db.Persist("k") {
		t.Errorf("Persist should succeed")
	}
	if db.Persist("k") {
		t.Errorf("second Persist should fail")
	}
}

func TestVersionsSurviveDeletion(t *testing.T) {
	db, _ := newTestDB()

	if v := db.Version("k"); v != 0 {
		t.Errorf("never-written key version expected 0, got %d", v)
	}
	db.Put("k", NewStringEntity([]byte("1")))
	v1 := db.Version("k")
	if v1 == 0 {
		t.Fatalf("written key version must be nonzero")
	}
	db.Delete("k")
	v2 := db.Version("k")
	if v2 <= v1 {
		t.Errorf("deletion must advance the version: %d then %d", v1, v2)
	}
	db.Put("k", NewStringEntity([]byte("1")))
	if db.Version("k") <= v2 {
		t.Errorf("recreation must advance the version")
	}
}

func TestRenameKeepsTTL(t *testing.T) {
	db, _ := newTestDB()

	db.Put("a", NewStringEntity([]byte("v")))
	db.SetExpireAt("a", db.nowMs()+60_000)
	if !db.Rename("a", "b") {
		t.Fatalf("rename failed")
	}
	if db.Exists("a") {
		t.Errorf("source must be gone")
	}
	if ttl := db.TTLms("b"); ttl != 60_000 {
		t.Errorf("TTL must move with the key, got %d", ttl)
	}
}

func TestCopySemantics(t *testing.T) {
	db, _ := newTestDB()

	db.Put("src", &Entity{Type: TypeList, Value: func() *List {
		l := NewList()
		l.PushTail([]byte("x"))
		return l
	}()})

	if !db.Copy("src", db, "dst", false) {
		t.Fatalf("copy failed")
	}
	// the clone is independent
	db.Lookup("dst").List().PushTail([]byte("y"))
	if db.Lookup("src").List().Len() != 1 {
		t.Errorf("copy must deep-clone the value")
	}
	if db.Copy("src", db, "dst", false) {
		t.Errorf("copy onto existing without replace must fail")
	}
	if !db.Copy("src", db, "dst", true) {
		t.Errorf("copy with replace must succeed")
	}
}

func TestSampledSweep(t *testing.T) {
	db, advance := newTestDB()

	for i := 0; i < 20; i++ {
		key := string(rune('a' + i))
		db.Put(key, NewStringEntity([]byte("v")))
		db.SetExpireAt(key, db.nowMs()+10)
	}
	advance(20 * time.Millisecond)

	for i := 0; i < 10; i++ {
		db.DeleteExpiredSample(10)
	}
	if n := db.Size(); n != 0 {
		t.Errorf("sweep should eventually clear everything, %d left", n)
	}
}

func TestRandomKeySeeded(t *testing.T) {
	db, _ := newTestDB()
	rng := rand.New(rand.NewSource(5))

	if k := db.RandomKey(rng); k != "" {
		t.Errorf("empty db random key expected \"\", got %q", k)
	}
	db.Put("only", NewStringEntity([]byte("v")))
	if k := db.RandomKey(rng); k != "only" {
		t.Errorf("expected the only key, got %q", k)
	}
}

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		pattern, s string
		want       bool
	}{
		{"*", "anything", true},
		{"", "", true},
		{"", "x", false},
		{"h?llo", "hello", true},
		{"h?llo", "hallo", true},
		{"h?llo", "hllo", false},
		{"h[ae]llo", "hello", true},
		{"h[ae]llo", "hillo", false},
		{"h[^e]llo", "hallo", true},
		{"h[^e]llo", "hello", false},
		{"h[a-c]llo", "hbllo", true},
		{"news.*", "news.sport", true},
		{"news.*", "weather.rain", false},
		{"*o*", "two", true},
		{"\\*", "*", true},
		{"\\*", "x", false},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "aXbY", false},
	}
	for _, tt := range tests {
		if got := GlobMatch(tt.pattern, tt.s); got != tt.want {
			t.Errorf("GlobMatch(%q, %q) = %v, want %v", tt.pattern, tt.s, got, tt.want)
		}
	}
}
