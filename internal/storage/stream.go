package storage

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrStreamIDInvalid = errors.New("ERR Invalid stream ID specified as stream command argument")
	ErrStreamIDSmall   = errors.New("ERR The ID specified in XADD is equal or smaller than the target stream top item")
	ErrStreamIDZero    = errors.New("ERR The ID specified in XADD must be greater than 0-0")
)

// StreamID is the (ms, seq) entry identity; ordering is lexicographic over
// the pair
type StreamID struct {
	Ms  uint64
	Seq uint64
}

func (id StreamID) String() string {
	return fmt.Sprintf("%d-%d", id.Ms, id.Seq)
}

func (id StreamID) Less(other StreamID) bool {
	if id.Ms != other.Ms {
		return id.Ms < other.Ms
	}
	return id.Seq < other.Seq
}

func (id StreamID) Equal(other StreamID) bool {
	return id.Ms == other.Ms && id.Seq == other.Seq
}

// Next returns the smallest id strictly greater than this one
func (id StreamID) Next() StreamID {
	if id.Seq == math.MaxUint64 {
		return StreamID{Ms: id.Ms + 1, Seq: 0}
	}
	return StreamID{Ms: id.Ms, Seq: id.Seq + 1}
}

// ParseStreamID parses "ms-seq" or a bare "ms". When the seq part is
// missing, defSeq fills it in (0 for range starts, MaxUint64 for range ends).
func ParseStreamID(s string, defSeq uint64) (StreamID, error) {
	var id StreamID
	ms, seq, found := strings.Cut(s, "-")
	m, err := strconv.ParseUint(ms, 10, 64)
	if err != nil {
		return id, ErrStreamIDInvalid
	}
	id.Ms = m
	if !found {
		id.Seq = defSeq
		return id, nil
	}
	q, err := strconv.ParseUint(seq, 10, 64)
	if err != nil {
		return id, ErrStreamIDInvalid
	}
	id.Seq = q
	return id, nil
}

// StreamEntry is one id-tagged field/value record; fields are kept
// flattened in insertion order
type StreamEntry struct {
	ID     StreamID
	Fields [][]byte
}

// PendingEntry tracks one delivered-but-unacknowledged id
type PendingEntry struct {
	ID            StreamID
	Consumer      string
	DeliveryTime  int64 // unix ms of the last delivery
	DeliveryCount int64
}

// StreamConsumer is a per-consumer view inside a group
type StreamConsumer struct {
	Name     string
	SeenTime int64
}

// StreamGroup is a named consumer group with its pending-entries list
type StreamGroup struct {
	LastDelivered StreamID
	Pending       map[StreamID]*PendingEntry
	Consumers     map[string]*StreamConsumer
	EntriesRead   int64
}

// Stream is an append-only log of entries plus consumer groups. It
// persists even with zero entries while groups reference it.
type Stream struct {
	Entries      []StreamEntry
	LastID       StreamID
	MaxDeleted   StreamID
	EntriesAdded uint64
	Groups       map[string]*StreamGroup
}

func NewStream() *Stream {
	return &Stream{Groups: make(map[string]*StreamGroup)}
}

func (s *Stream) Len() int {
	return len(s.Entries)
}

// NextAutoID generates the id for "*": (now_ms, 0), bumping seq when
// several entries land in the same millisecond
func (s *Stream) NextAutoID(nowMs int64) StreamID {
	id := StreamID{Ms: uint64(nowMs)}
	if !s.LastID.Less(id) {
		id = s.LastID.Next()
	}
	return id
}

// Add appends an entry; the id must be strictly greater than LastID
func (s *Stream) Add(id StreamID, fields [][]byte) error {
	if id.Ms == 0 && id.Seq == 0 {
		return ErrStreamIDZero
	}
	if !s.LastID.Less(id) {
		return ErrStreamIDSmall
	}
	s.Entries = append(s.Entries, StreamEntry{ID: id, Fields: fields})
	s.LastID = id
	s.EntriesAdded++
	return nil
}

// searchIdx returns the index of the first entry with id >= target
func (s *Stream) searchIdx(target StreamID) int {
	return sort.Search(len(s.Entries), func(i int) bool {
		return !s.Entries[i].ID.Less(target)
	})
}

// searchIdxAfter returns the index of the first entry with id > target
func (s *Stream) searchIdxAfter(target StreamID) int {
	return sort.Search(len(s.Entries), func(i int) bool {
		return target.Less(s.Entries[i].ID)
	})
}

// Range returns entries with start <= id <= end (count 0 = unlimited)
func (s *Stream) Range(start, end StreamID, count int, rev bool) []StreamEntry {
	lo := s.searchIdx(start)
	hi := s.searchIdxAfter(end)
	if lo >= hi {
		return nil
	}
	window := s.Entries[lo:hi]

	var out []StreamEntry
	if rev {
		for i := len(window) - 1; i >= 0; i-- {
			out = append(out, window[i])
			if count > 0 && len(out) >= count {
				break
			}
		}
	} else {
		for _, e := range window {
			out = append(out, e)
			if count > 0 && len(out) >= count {
				break
			}
		}
	}
	return out
}

// After returns up to count entries with id > after
func (s *Stream) After(after StreamID, count int) []StreamEntry {
	idx := s.searchIdxAfter(after)
	out := s.Entries[idx:]
	if count > 0 && len(out) > count {
		out = out[:count]
	}
	return out
}

// Get returns the entry with the exact id
func (s *Stream) Get(id StreamID) (StreamEntry, bool) {
	idx := s.searchIdx(id)
	if idx < len(s.Entries) && s.Entries[idx].ID.Equal(id) {
		return s.Entries[idx], true
	}
	return StreamEntry{}, false
}

// Delete removes the ids that exist, returning how many were removed
func (s *Stream) Delete(ids []StreamID) int {
	removed := 0
	for _, id := range ids {
		idx := s.searchIdx(id)
		if idx < len(s.Entries) && s.Entries[idx].ID.Equal(id) {
			s.Entries = append(s.Entries[:idx], s.Entries[idx+1:]...)
			if s.MaxDeleted.Less(id) {
				s.MaxDeleted = id
			}
			removed++
		}
	}
	return removed
}

// TrimMaxLen keeps only the newest maxLen entries
func (s *Stream) TrimMaxLen(maxLen int) int {
	if len(s.Entries) <= maxLen {
		return 0
	}
	cut := len(s.Entries) - maxLen
	for _, e := range s.Entries[:cut] {
		if s.MaxDeleted.Less(e.ID) {
			s.MaxDeleted = e.ID
		}
	}
	s.Entries = append([]StreamEntry(nil), s.Entries[cut:]...)
	return cut
}

// TrimMinID evicts entries with id < minID
func (s *Stream) TrimMinID(minID StreamID) int {
	cut := s.searchIdx(minID)
	if cut == 0 {
		return 0
	}
	for _, e := range s.Entries[:cut] {
		if s.MaxDeleted.Less(e.ID) {
			s.MaxDeleted = e.ID
		}
	}
	s.Entries = append([]StreamEntry(nil), s.Entries[cut:]...)
	return cut
}

// CreateGroup registers a consumer group starting after lastID. Returns
// false when the name is taken.
func (s *Stream) CreateGroup(name string, lastID StreamID) bool {
	if _, ok := s.Groups[name]; ok {
		return false
	}
	s.Groups[name] = &StreamGroup{
		LastDelivered: lastID,
		Pending:       make(map[StreamID]*PendingEntry),
		Consumers:     make(map[string]*StreamConsumer),
	}
	return true
}

func (s *Stream) Group(name string) *StreamGroup {
	return s.Groups[name]
}

// EnsureConsumer returns the named consumer, creating it on first use
func (g *StreamGroup) EnsureConsumer(name string, nowMs int64) *StreamConsumer {
	c, ok := g.Consumers[name]
	if !ok {
		c = &StreamConsumer{Name: name}
		g.Consumers[name] = c
	}
	c.SeenTime = nowMs
	return c
}

// Deliver records the entry into the PEL for the consumer
func (g *StreamGroup) Deliver(id StreamID, consumer string, nowMs int64) {
	g.Pending[id] = &PendingEntry{
		ID:            id,
		Consumer:      consumer,
		DeliveryTime:  nowMs,
		DeliveryCount: 1,
	}
	g.EntriesRead++
}

// Ack drops the id from the PEL; returns true when it was pending
func (g *StreamGroup) Ack(id StreamID) bool {
	if _, ok := g.Pending[id]; !ok {
		return false
	}
	delete(g.Pending, id)
	return true
}

// PendingIDs returns the PEL ids in ascending order, optionally filtered by
// consumer
func (g *StreamGroup) PendingIDs(consumer string) []StreamID {
	out := make([]StreamID, 0, len(g.Pending))
	for id, pe := range g.Pending {
		if consumer != "" && pe.Consumer != consumer {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func (s *Stream) Clone() *Stream {
	out := NewStream()
	out.LastID = s.LastID
	out.MaxDeleted = s.MaxDeleted
	out.EntriesAdded = s.EntriesAdded
	out.Entries = make([]StreamEntry, len(s.Entries))
	for i, e := range s.Entries {
		fields := make([][]byte, len(e.Fields))
		for j, f := range e.Fields {
			b := make([]byte, len(f))
			copy(b, f)
			fields[j] = b
		}
		out.Entries[i] = StreamEntry{ID: e.ID, Fields: fields}
	}
	for name, g := range s.Groups {
		ng := &StreamGroup{
			LastDelivered: g.LastDelivered,
			Pending:       make(map[StreamID]*PendingEntry, len(g.Pending)),
			Consumers:     make(map[string]*StreamConsumer, len(g.Consumers)),
			EntriesRead:   g.EntriesRead,
		}
		for id, pe := range g.Pending {
			cp := *pe
			ng.Pending[id] = &cp
		}
		for cn, c := range g.Consumers {
			cp := *c
			ng.Consumers[cn] = &cp
		}
		out.Groups[name] = ng
	}
	return out
}
