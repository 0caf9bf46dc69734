package server

import (
	"bytes"
	"encoding/gob"

	"github.com/eternalApril/moonbeam/internal/storage"
)

// The snapshot payload is a gob-encoded flat transcription of every
// database. The snapshotter treats it as opaque bytes.

type dumpEntry struct {
	Key      string
	Type     byte
	ExpireAt int64

	Str    []byte
	List   [][]byte
	Hash   map[string][]byte
	Set    []string
	ZSet   []storage.ZMember
	Stream *storage.Stream
}

type dumpDB struct {
	Index   int
	Entries []dumpEntry
}

type dumpState struct {
	DBs []dumpDB
}

// encodeState serializes every keyspace; called under the engine lock
func (e *Engine) encodeState() ([]byte, error) {
	state := dumpState{DBs: make([]dumpDB, len(e.dbs))}
	for i, db := range e.dbs {
		dd := dumpDB{Index: db.Index}
		db.ForEach(func(key string, it *storage.Item) {
			de := dumpEntry{
				Key:      key,
				Type:     byte(it.Ent.Type),
				ExpireAt: it.ExpireAt,
			}
			switch it.Ent.Type {
			case storage.TypeString:
				de.Str = it.Ent.Bytes()
			case storage.TypeList:
				de.List = it.Ent.List().Range(0, -1)
			case storage.TypeHash:
				de.Hash = it.Ent.Hash().Clone()
			case storage.TypeSet:
				de.Set = it.Ent.Set().Members()
			case storage.TypeZSet:
				de.ZSet = it.Ent.ZSet().Members()
			case storage.TypeStream:
				de.Stream = it.Ent.Stream().Clone()
			}
			dd.Entries = append(dd.Entries, de)
		})
		state.DBs[i] = dd
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(state); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeState replaces every keyspace with the snapshot contents; called
// under the engine lock
func (e *Engine) decodeState(data []byte) error {
	var state dumpState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state); err != nil {
		return err
	}

	for _, db := range e.dbs {
		db.Flush()
	}
	for _, dd := range state.DBs {
		if dd.Index < 0 || dd.Index >= len(e.dbs) {
			continue
		}
		db := e.dbs[dd.Index]
		for _, de := range dd.Entries {
			ent := &storage.Entity{Type: storage.DataType(de.Type)}
			switch ent.Type {
			case storage.TypeString:
				ent.Value = de.Str
			case storage.TypeList:
				lst := storage.NewList()
				lst.PushTail(de.List...)
				ent.Value = lst
			case storage.TypeHash:
				h := storage.NewHash()
				for f, v := range de.Hash {
					h.Set(f, v)
				}
				ent.Value = h
			case storage.TypeSet:
				s := storage.NewSet()
				for _, m := range de.Set {
					s.Add(m)
				}
				ent.Value = s
			case storage.TypeZSet:
				z := storage.NewZSet(e.rng)
				for _, m := range de.ZSet {
					z.Add(m.Member, m.Score)
				}
				ent.Value = z
			case storage.TypeStream:
				ent.Value = de.Stream
			default:
				continue
			}
			db.RestoreItem(de.Key, ent, de.ExpireAt)
		}
	}
	return nil
}
