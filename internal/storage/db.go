package storage

import (
	"math/rand"
	"time"
)

// Item couples an entity with its keyspace metadata
type Item struct {
	Ent      *Entity
	ExpireAt int64 // absolute unix milliseconds, 0 means no expiry
}

// DB is one numbered keyspace. It is not synchronized; the engine
// serializes all access behind its execution lock.
type DB struct {
	Index    int
	items    map[string]*Item
	versions map[string]uint64 // per-key write stamps; survive deletion so
	// a delete-and-recreate still invalidates a WATCH
	clock   func() time.Time
	counter *uint64 // global version counter shared by all databases

	// OnExpired is invoked when a key is removed because its TTL passed,
	// either lazily on access or by the active sweep
	OnExpired func(db int, key string)
}

// NewDB creates an empty keyspace. The clock is injectable so tests can pin
// deterministic TTL behavior.
func NewDB(index int, clock func() time.Time, counter *uint64) *DB {
	return &DB{
		Index:    index,
		items:    make(map[string]*Item),
		versions: make(map[string]uint64),
		clock:    clock,
		counter:  counter,
	}
}

func (db *DB) nowMs() int64 {
	return db.clock().UnixMilli()
}

// expireIfStale is the single lazy-expiration choke point: every key
// resolution funnels through it
func (db *DB) expireIfStale(key string, it *Item) bool {
	if it.ExpireAt == 0 || it.ExpireAt > db.nowMs() {
		return false
	}
	delete(db.items, key)
	db.Touch(key)
	if db.OnExpired != nil {
		db.OnExpired(db.Index, key)
	}
	return true
}

// Lookup resolves a key to its entity, treating stale keys as absent
func (db *DB) Lookup(key string) *Entity {
	it, ok := db.items[key]
	if !ok || db.expireIfStale(key, it) {
		return nil
	}
	return it.Ent
}

// LookupItem resolves a key to its item (entity plus metadata)
func (db *DB) LookupItem(key string) *Item {
	it, ok := db.items[key]
	if !ok || db.expireIfStale(key, it) {
		return nil
	}
	return it
}

// Exists reports whether the key is live
func (db *DB) Exists(key string) bool {
	return db.LookupItem(key) != nil
}

// Touch stamps the key with the next global version. Call it after every
// successful write to the key, deletions included.
func (db *DB) Touch(key string) {
	*db.counter++
	db.versions[key] = *db.counter
}

// Version returns the key's current version, 0 if it was never written.
// Resolving the key first lets a pending lazy expiration stamp it.
func (db *DB) Version(key string) uint64 {
	db.LookupItem(key)
	return db.versions[key]
}

// Put stores an entity under key, replacing whatever was there. The expiry
// is cleared; use PutKeepTTL to retain it.
func (db *DB) Put(key string, ent *Entity) {
	db.items[key] = &Item{Ent: ent}
	db.Touch(key)
}

// PutKeepTTL stores an entity, retaining an existing expiry
func (db *DB) PutKeepTTL(key string, ent *Entity) {
	if it, ok := db.items[key]; ok && !db.expireIfStale(key, it) {
		it.Ent = ent
		db.Touch(key)
		return
	}
	db.Put(key, ent)
}

// Delete removes the key. Returns true if the key existed and was deleted.
func (db *DB) Delete(key string) bool {
	it, ok := db.items[key]
	if !ok || db.expireIfStale(key, it) {
		return false
	}
	delete(db.items, key)
	db.Touch(key)
	return true
}

// DeleteIfEmpty enforces the empty-aggregate rule after a mutation
func (db *DB) DeleteIfEmpty(key string) bool {
	ent := db.Lookup(key)
	if ent != nil && ent.Empty() {
		return db.Delete(key)
	}
	return false
}

// ExpireAt returns the absolute expiry in unix ms, 0 if none, -1 if the key
// is absent
func (db *DB) ExpireAt(key string) int64 {
	it := db.LookupItem(key)
	if it == nil {
		return -1
	}
	return it.ExpireAt
}

// SetExpireAt installs an absolute expiry. Setting a timestamp in the past
// deletes the key immediately (without an expired notification; the caller
// reports it as a DEL).
func (db *DB) SetExpireAt(key string, at int64) bool {
	it := db.LookupItem(key)
	if it == nil {
		return false
	}
	if at <= db.nowMs() {
		delete(db.items, key)
		db.Touch(key)
		return true
	}
	it.ExpireAt = at
	db.Touch(key)
	return true
}

// Persist drops the expiry. Returns true if the key existed with a TTL.
func (db *DB) Persist(key string) bool {
	it := db.LookupItem(key)
	if it == nil || it.ExpireAt == 0 {
		return false
	}
	it.ExpireAt = 0
	db.Touch(key)
	return true
}

// TTLms returns the remaining lifetime in milliseconds, -1 for no expiry,
// -2 for a missing key
func (db *DB) TTLms(key string) int64 {
	it := db.LookupItem(key)
	if it == nil {
		return -2
	}
	if it.ExpireAt == 0 {
		return -1
	}
	return it.ExpireAt - db.nowMs()
}

// Rename moves value and TTL atomically, stamping both keys. Returns false
// if the source is absent.
func (db *DB) Rename(src, dst string) bool {
	it := db.LookupItem(src)
	if it == nil {
		return false
	}
	delete(db.items, src)
	db.items[dst] = it
	db.Touch(src)
	db.Touch(dst)
	return true
}

// Copy clones the source entity into dst (possibly in another database).
// Fails if dst exists and replace is unset.
func (db *DB) Copy(src string, dstDB *DB, dst string, replace bool) bool {
	it := db.LookupItem(src)
	if it == nil {
		return false
	}
	if !replace && dstDB.Exists(dst) {
		return false
	}
	dstDB.items[dst] = &Item{Ent: cloneEntity(it.Ent), ExpireAt: it.ExpireAt}
	dstDB.Touch(dst)
	return true
}

// Move transfers the key to another database, failing when the destination
// already holds it
func (db *DB) Move(key string, dstDB *DB) bool {
	it := db.LookupItem(key)
	if it == nil || dstDB.Exists(key) {
		return false
	}
	delete(db.items, key)
	dstDB.items[key] = it
	db.Touch(key)
	dstDB.Touch(key)
	return true
}

// Keys returns all live keys matching the glob pattern
func (db *DB) Keys(pattern string) []string {
	var out []string
	for key, it := range db.items {
		if db.expireIfStale(key, it) {
			continue
		}
		if GlobMatch(pattern, key) {
			out = append(out, key)
		}
	}
	return out
}

// Size returns the number of live keys
func (db *DB) Size() int {
	n := 0
	for key, it := range db.items {
		if db.expireIfStale(key, it) {
			continue
		}
		n++
	}
	return n
}

// RandomKey returns a uniformly random live key, "" when the db is empty
func (db *DB) RandomKey(rng *rand.Rand) string {
	keys := db.Keys("*")
	if len(keys) == 0 {
		return ""
	}
	return keys[rng.Intn(len(keys))]
}

// Flush drops every key
func (db *DB) Flush() {
	for key := range db.items {
		db.Touch(key)
	}
	db.items = make(map[string]*Item)
}

// DeleteExpiredSample checks up to limit keys and deletes the stale ones,
// returning the expired/checked ratio. Go map iteration order is randomized
// by design, which gives us the sampling.
func (db *DB) DeleteExpiredSample(limit int) float64 {
	checked := 0
	expired := 0
	for key, it := range db.items {
		if it.ExpireAt == 0 {
			continue
		}
		checked++
		if db.expireIfStale(key, it) {
			expired++
		}
		if checked >= limit {
			break
		}
	}
	if checked == 0 {
		return 0.0
	}
	return float64(expired) / float64(checked)
}

// Snapshot-facing iteration: visit every live item
func (db *DB) ForEach(fn func(key string, it *Item)) {
	for key, it := range db.items {
		if db.expireIfStale(key, it) {
			continue
		}
		fn(key, it)
	}
}

// RestoreItem installs an item as-is, used by the snapshot loader
func (db *DB) RestoreItem(key string, ent *Entity, expireAt int64) {
	db.items[key] = &Item{Ent: ent, ExpireAt: expireAt}
	db.Touch(key)
}

func cloneEntity(e *Entity) *Entity {
	out := &Entity{Type: e.Type}
	switch e.Type {
	case TypeString:
		b := make([]byte, len(e.Bytes()))
		copy(b, e.Bytes())
		out.Value = b
	case TypeList:
		out.Value = e.List().Clone()
	case TypeHash:
		out.Value = e.Hash().Clone()
	case TypeSet:
		out.Value = e.Set().Clone()
	case TypeZSet:
		out.Value = e.ZSet().Clone()
	case TypeStream:
		out.Value = e.Stream().Clone()
	}
	return out
}
