package server

import (
	"strings"

	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

func (ctx *context) setForWrite(key string) (storage.Set, resp.Value, bool) {
	ent, ok := ctx.lookupTyped(key, storage.TypeSet)
	if !ok {
		return nil, wrongTypeReply, false
	}
	if ent == nil {
		s := storage.NewSet()
		ctx.db().Put(key, &storage.Entity{Type: storage.TypeSet, Value: s})
		return s, resp.Value{}, true
	}
	return ent.Set(), resp.Value{}, true
}

// lookupSet resolves a read-side set; nil means "treat as empty"
func (ctx *context) lookupSet(key string) (storage.Set, resp.Value, bool) {
	ent, ok := ctx.lookupTyped(key, storage.TypeSet)
	if !ok {
		return nil, wrongTypeReply, false
	}
	if ent == nil {
		return storage.NewSet(), resp.Value{}, true
	}
	return ent.Set(), resp.Value{}, true
}

func sadd(ctx *context) resp.Value {
	key := ctx.argStr(0)
	s, errRes, ok := ctx.setForWrite(key)
	if !ok {
		return errRes
	}
	added := int64(0)
	for i := 1; i < len(ctx.args); i++ {
		if s.Add(ctx.argStr(i)) {
			added++
		}
	}
	if added > 0 {
		ctx.db().Touch(key)
		ctx.signalWrite(classSet, "sadd", key)
	} else {
		ctx.db().DeleteIfEmpty(key)
	}
	return resp.MakeInteger(added)
}

func srem(ctx *context) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeSet)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeInteger(0)
	}
	s := ent.Set()
	removed := int64(0)
	for i := 1; i < len(ctx.args); i++ {
		if s.Remove(ctx.argStr(i)) {
			removed++
		}
	}
	if removed > 0 {
		db := ctx.db()
		db.Touch(key)
		ctx.notify(classSet, "srem", key)
		if len(s) == 0 {
			db.Delete(key)
			ctx.notify(classGeneric, "del", key)
		}
	}
	return resp.MakeInteger(removed)
}

func smembers(ctx *context) resp.Value {
	s, errRes, ok := ctx.lookupSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	members := s.Members()
	out := make([]resp.Value, len(members))
	for i, m := range members {
		out[i] = resp.MakeBulkString(m)
	}
	return resp.MakeSet(out)
}

func sismember(ctx *context) resp.Value {
	s, errRes, ok := ctx.lookupSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	if s.Contains(ctx.argStr(1)) {
		return resp.MakeInteger(1)
	}
	return resp.MakeInteger(0)
}

func smismember(ctx *context) resp.Value {
	s, errRes, ok := ctx.lookupSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	out := make([]resp.Value, len(ctx.args)-1)
	for i := 1; i < len(ctx.args); i++ {
		if s.Contains(ctx.argStr(i)) {
			out[i-1] = resp.MakeInteger(1)
		} else {
			out[i-1] = resp.MakeInteger(0)
		}
	}
	return resp.MakeArray(out)
}

func scard(ctx *context) resp.Value {
	s, errRes, ok := ctx.lookupSet(ctx.argStr(0))
	if !ok {
		return errRes
	}
	return resp.MakeInteger(int64(len(s)))
}

func spop(ctx *context) resp.Value {
	key := ctx.argStr(0)
	count := 1
	hasCount := false
	if len(ctx.args) == 2 {
		n, err := parseIntArg(ctx.argStr(1))
		if err != nil || n < 0 {
			return resp.MakeError(msgValueRange)
		}
		count = int(n)
		hasCount = true
	}

	ent, ok := ctx.lookupTyped(key, storage.TypeSet)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		if hasCount {
			return resp.MakeSet(nil)
		}
		return nilBulk()
	}
	s := ent.Set()

	picked := s.Random(ctx.eng.rng, count, true)
	for _, m := range picked {
		s.Remove(m)
	}
	if len(picked) > 0 {
		db := ctx.db()
		db.Touch(key)
		ctx.notify(classSet, "spop", key)
		if len(s) == 0 {
			db.Delete(key)
			ctx.notify(classGeneric, "del", key)
		}
	}

	if !hasCount {
		if len(picked) == 0 {
			return nilBulk()
		}
		return resp.MakeBulkString(picked[0])
	}
	out := make([]resp.Value, len(picked))
	for i, m := range picked {
		out[i] = resp.MakeBulkString(m)
	}
	return resp.MakeSet(out)
}

func srandmember(ctx *context) resp.Value {
	key := ctx.argStr(0)
	s, errRes, ok := ctx.lookupSet(key)
	if !ok {
		return errRes
	}

	if len(ctx.args) == 1 {
		picked := s.Random(ctx.eng.rng, 1, true)
		if len(picked) == 0 {
			return nilBulk()
		}
		return resp.MakeBulkString(picked[0])
	}

	n, err := parseIntArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	var picked []string
	if n >= 0 {
		picked = s.Random(ctx.eng.rng, int(n), true)
	} else {
		picked = s.Random(ctx.eng.rng, int(-n), false)
	}
	out := make([]resp.Value, len(picked))
	for i, m := range picked {
		out[i] = resp.MakeBulkString(m)
	}
	return resp.MakeArray(out)
}

func smove(ctx *context) resp.Value {
	srcKey, dstKey := ctx.argStr(0), ctx.argStr(1)
	member := ctx.argStr(2)

	srcEnt, ok := ctx.lookupTyped(srcKey, storage.TypeSet)
	if !ok {
		return wrongTypeReply
	}
	if _, ok := ctx.lookupTyped(dstKey, storage.TypeSet); !ok {
		return wrongTypeReply
	}
	if srcEnt == nil || !srcEnt.Set().Contains(member) {
		return resp.MakeInteger(0)
	}

	srcEnt.Set().Remove(member)
	dst, _, _ := ctx.setForWrite(dstKey)
	dst.Add(member)

	db := ctx.db()
	db.Touch(srcKey)
	db.Touch(dstKey)
	ctx.notify(classSet, "srem", srcKey)
	ctx.signalWrite(classSet, "sadd", dstKey)
	if len(srcEnt.Set()) == 0 {
		db.Delete(srcKey)
		ctx.notify(classGeneric, "del", srcKey)
	}
	return resp.MakeInteger(1)
}

// setAlgebra evaluates SDIFF/SINTER/SUNION over the argument keys
func (ctx *context) setAlgebra(op string, keyArgs [][]byte) (storage.Set, resp.Value, bool) {
	sets := make([]storage.Set, len(keyArgs))
	for i, k := range keyArgs {
		s, errRes, ok := ctx.lookupSet(string(k))
		if !ok {
			return nil, errRes, false
		}
		sets[i] = s
	}
	var result storage.Set
	switch op {
	case "DIFF":
		result = sets[0].Diff(sets[1:]...)
	case "INTER":
		result = sets[0].Inter(sets[1:]...)
	case "UNION":
		result = sets[0].Union(sets[1:]...)
	}
	return result, resp.Value{}, true
}

func setAlgebraCmd(op string) func(ctx *context) resp.Value {
	return func(ctx *context) resp.Value {
		result, errRes, ok := ctx.setAlgebra(op, ctx.args)
		if !ok {
			return errRes
		}
		members := result.Members()
		out := make([]resp.Value, len(members))
		for i, m := range members {
			out[i] = resp.MakeBulkString(m)
		}
		return resp.MakeSet(out)
	}
}

func setAlgebraStoreCmd(op string) func(ctx *context) resp.Value {
	return func(ctx *context) resp.Value {
		dst := ctx.argStr(0)
		result, errRes, ok := ctx.setAlgebra(op, ctx.args[1:])
		if !ok {
			return errRes
		}
		db := ctx.db()
		if len(result) == 0 {
			if db.Delete(dst) {
				ctx.notify(classGeneric, "del", dst)
			}
			return resp.MakeInteger(0)
		}
		db.Put(dst, &storage.Entity{Type: storage.TypeSet, Value: result})
		ctx.signalWrite(classSet, "sinterstore", dst)
		return resp.MakeInteger(int64(len(result)))
	}
}

func sintercard(ctx *context) resp.Value {
	numKeys, err := parseIntArg(ctx.argStr(0))
	if err != nil || numKeys <= 0 || int(numKeys) > len(ctx.args)-1 {
		return resp.MakeError("ERR numkeys should be greater than 0")
	}
	limit := -1
	rest := ctx.args[1+numKeys:]
	if len(rest) == 2 {
		if strings.ToUpper(string(rest[0])) != "LIMIT" {
			return syntaxErrReply
		}
		n, err := parseIntArg(string(rest[1]))
		if err != nil || n < 0 {
			return resp.MakeError("ERR LIMIT can't be negative")
		}
		limit = int(n)
	} else if len(rest) != 0 {
		return syntaxErrReply
	}

	result, errRes, ok := ctx.setAlgebra("INTER", ctx.args[1:1+numKeys])
	if !ok {
		return errRes
	}
	card := len(result)
	if limit >= 0 && card > limit {
		card = limit
	}
	return resp.MakeInteger(int64(card))
}

func sscan(ctx *context) resp.Value {
	key := ctx.argStr(0)
	cursor, err := parseIntArg(ctx.argStr(1))
	if err != nil || cursor < 0 {
		return resp.MakeError("ERR invalid cursor")
	}
	opts, errRes, ok := parseScanArgs(ctx, 2, false)
	if !ok {
		return errRes
	}
	s, errRes, typeOK := ctx.lookupSet(key)
	if !typeOK {
		return errRes
	}
	next, window := scanWindow(s.Members(), int(cursor), opts.count)
	items := make([]resp.Value, 0, len(window))
	for _, m := range window {
		if opts.hasMatch && !storage.GlobMatch(opts.match, m) {
			continue
		}
		items = append(items, resp.MakeBulkString(m))
	}
	return scanReply(next, items)
}
