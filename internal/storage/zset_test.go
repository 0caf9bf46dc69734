package storage

import (
	"math"
	"math/rand"
	"testing"
)

func newTestZSet() *ZSet {
	return NewZSet(rand.New(rand.NewSource(1)))
}

func TestZSetOrderingInvariant(t *testing.T) {
	z := newTestZSet()
	inputs := []ZMember{
		{"delta", 4}, {"alpha", 1}, {"charlie", 1}, {"bravo", 1}, {"echo", -2},
	}
	for _, m := range inputs {
		z.Add(m.Member, m.Score)
	}

	members := z.Members()
	for i := 1; i < len(members); i++ {
		a, b := members[i-1], members[i]
		if a.Score > b.Score || (a.Score == b.Score && a.Member >= b.Member) {
			t.Errorf("ordering violated at %d: %v before %v", i, a, b)
		}
	}
}

func TestZSetAddUpdateRemove(t *testing.T) {
	z := newTestZSet()

	if !z.Add("m", 1) {
		t.Errorf("first add must report new")
	}
	if z.Add("m", 2) {
		t.Errorf("update must not report new")
	}
	if s, ok := z.Score("m"); !ok || s != 2 {
		t.Errorf("score after update = %v, %v", s, ok)
	}
	if z.Card() != 1 {
		t.Errorf("card expected 1, got %d", z.Card())
	}
	if !z.Remove("m") || z.Remove("m") {
		t.Errorf("remove semantics wrong")
	}
}

func TestZSetRankAndRange(t *testing.T) {
	z := newTestZSet()
	for i, m := range []string{"a", "b", "c", "d", "e"} {
		z.Add(m, float64(i))
	}

	if r := z.Rank("a", false); r != 0 {
		t.Errorf("rank a expected 0, got %d", r)
	}
	if r := z.Rank("e", false); r != 4 {
		t.Errorf("rank e expected 4, got %d", r)
	}
	if r := z.Rank("e", true); r != 0 {
		t.Errorf("revrank e expected 0, got %d", r)
	}
	if r := z.Rank("zz", false); r != -1 {
		t.Errorf("rank of missing expected -1, got %d", r)
	}

	got := z.RangeByRank(1, 3, false)
	if len(got) != 3 || got[0].Member != "b" || got[2].Member != "d" {
		t.Errorf("RangeByRank wrong: %v", got)
	}
	got = z.RangeByRank(-2, -1, false)
	if len(got) != 2 || got[0].Member != "d" {
		t.Errorf("negative range wrong: %v", got)
	}
	got = z.RangeByRank(0, 1, true)
	if len(got) != 2 || got[0].Member != "e" || got[1].Member != "d" {
		t.Errorf("rev range wrong: %v", got)
	}
}

func TestZSetScoreRanges(t *testing.T) {
	z := newTestZSet()
	for i, m := range []string{"a", "b", "c", "d"} {
		z.Add(m, float64(i+1))
	}

	spec, err := ParseScoreRange("2", "3")
	if err != nil {
		t.Fatal(err)
	}
	got := z.RangeByScore(spec, 0, -1, false)
	if len(got) != 2 || got[0].Member != "b" {
		t.Errorf("inclusive range wrong: %v", got)
	}

	spec, _ = ParseScoreRange("(1", "(4")
	got = z.RangeByScore(spec, 0, -1, false)
	if len(got) != 2 || got[0].Member != "b" || got[1].Member != "c" {
		t.Errorf("exclusive range wrong: %v", got)
	}

	spec, _ = ParseScoreRange("-inf", "+inf")
	if n := z.Count(spec); n != 4 {
		t.Errorf("count over full range expected 4, got %d", n)
	}
	got = z.RangeByScore(spec, 1, 2, false)
	if len(got) != 2 || got[0].Member != "b" {
		t.Errorf("offset/count wrong: %v", got)
	}
	got = z.RangeByScore(spec, 0, -1, true)
	if len(got) != 4 || got[0].Member != "d" {
		t.Errorf("reverse scan wrong: %v", got)
	}

	if _, _, err := ParseScoreRangeItem("abc"); err == nil {
		t.Errorf("bad score bound must fail")
	}
}

func TestZSetLexRanges(t *testing.T) {
	z := newTestZSet()
	for _, m := range []string{"a", "b", "c", "d"} {
		z.Add(m, 0)
	}

	spec, err := ParseLexRange("[b", "[c")
	if err != nil {
		t.Fatal(err)
	}
	got := z.RangeByLex(spec, 0, -1, false)
	if len(got) != 2 || got[0].Member != "b" || got[1].Member != "c" {
		t.Errorf("lex inclusive wrong: %v", got)
	}

	spec, _ = ParseLexRange("(a", "+")
	got = z.RangeByLex(spec, 0, -1, false)
	if len(got) != 3 || got[0].Member != "b" {
		t.Errorf("lex exclusive wrong: %v", got)
	}

	spec, _ = ParseLexRange("-", "+")
	if n := z.LexCount(spec); n != 4 {
		t.Errorf("lex count expected 4, got %d", n)
	}

	if _, err := ParseLexRange("b", "+"); err != ErrRangeItem {
		t.Errorf("bad lex bound must return ErrRangeItem, got %v", err)
	}
}

func TestZSetIncrAndPop(t *testing.T) {
	z := newTestZSet()

	if s, err := z.IncrBy("m", 2.5); err != nil || s != 2.5 {
		t.Errorf("IncrBy create: %v %v", s, err)
	}
	if s, err := z.IncrBy("m", -1); err != nil || s != 1.5 {
		t.Errorf("IncrBy: %v %v", s, err)
	}
	z.Add("inf", math.Inf(1))
	if _, err := z.IncrBy("inf", math.Inf(-1)); err == nil {
		t.Errorf("inf + -inf must produce a NaN error")
	}

	z2 := newTestZSet()
	for i, m := range []string{"a", "b", "c"} {
		z2.Add(m, float64(i))
	}
	popped := z2.PopMin(2)
	if len(popped) != 2 || popped[0].Member != "a" || popped[1].Member != "b" {
		t.Errorf("PopMin wrong: %v", popped)
	}
	popped = z2.PopMax(5)
	if len(popped) != 1 || popped[0].Member != "c" {
		t.Errorf("PopMax wrong: %v", popped)
	}
	if z2.Card() != 0 {
		t.Errorf("zset should be drained")
	}
}

func TestZSetLargeInsertConsistency(t *testing.T) {
	z := newTestZSet()
	rng := rand.New(rand.NewSource(7))
	const n = 2000
	for i := 0; i < n; i++ {
		z.Add(string(rune('a'+i%26))+string(rune('a'+(i/26)%26))+string(rune('a'+i/676)), rng.Float64()*1000)
	}
	members := z.Members()
	if len(members) != z.Card() {
		t.Fatalf("dict/skiplist size mismatch: %d vs %d", len(members), z.Card())
	}
	for i := 1; i < len(members); i++ {
		a, b := members[i-1], members[i]
		if a.Score > b.Score || (a.Score == b.Score && a.Member >= b.Member) {
			t.Fatalf("ordering violated at %d", i)
		}
	}
	// ranks agree with iteration order
	for i, m := range members[:100] {
		if r := z.Rank(m.Member, false); r != i {
			t.Fatalf("rank mismatch for %s: got %d want %d", m.Member, r, i)
		}
	}
}
