package server

import (
	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

// listForWrite resolves the key to a list, creating it on demand
func (ctx *context) listForWrite(key string) (*storage.List, resp.Value, bool) {
	ent, ok := ctx.lookupTyped(key, storage.TypeList)
	if !ok {
		return nil, wrongTypeReply, false
	}
	if ent == nil {
		lst := storage.NewList()
		ctx.db().Put(key, &storage.Entity{Type: storage.TypeList, Value: lst})
		return lst, resp.Value{}, true
	}
	return ent.List(), resp.Value{}, true
}

func pushGeneric(ctx *context, head, xx bool) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeList)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil && xx {
		return resp.MakeInteger(0)
	}

	lst, errRes, ok := ctx.listForWrite(key)
	if !ok {
		return errRes
	}
	for i := 1; i < len(ctx.args); i++ {
		if head {
			lst.PushHead(ctx.arg(i))
		} else {
			lst.PushTail(ctx.arg(i))
		}
	}
	ctx.db().Touch(key)
	event := "rpush"
	if head {
		event = "lpush"
	}
	ctx.signalWrite(classList, event, key)
	return resp.MakeInteger(int64(lst.Len()))
}

func lpush(ctx *context) resp.Value {
	return pushGeneric(ctx, true, false)
}

func rpush(ctx *context) resp.Value {
	return pushGeneric(ctx, false, false)
}

func lpushx(ctx *context) resp.Value {
	return pushGeneric(ctx, true, true)
}

func rpushx(ctx *context) resp.Value {
	return pushGeneric(ctx, false, true)
}

func popGeneric(ctx *context, head bool) resp.Value {
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

	ent, ok := ctx.lookupTyped(key, storage.TypeList)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		if hasCount {
			return resp.MakeNilArray()
		}
		return nilBulk()
	}

	lst := ent.List()
	popped := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		var v []byte
		var got bool
		if head {
			v, got = lst.PopHead()
		} else {
			v, got = lst.PopTail()
		}
		if !got {
			break
		}
		popped = append(popped, v)
	}

	db := ctx.db()
	db.Touch(key)
	event := "rpop"
	if head {
		event = "lpop"
	}
	ctx.notify(classList, event, key)
	if lst.Len() == 0 {
		db.Delete(key)
		ctx.notify(classGeneric, "del", key)
	}

	if hasCount {
		return resp.MakeBulkArray(popped)
	}
	if len(popped) == 0 {
		return nilBulk()
	}
	return resp.MakeBulkBytes(popped[0])
}

func lpop(ctx *context) resp.Value {
	return popGeneric(ctx, true)
}

func rpop(ctx *context) resp.Value {
	return popGeneric(ctx, false)
}

func llen(ctx *context) resp.Value {
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeList)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeInteger(0)
	}
	return resp.MakeInteger(int64(ent.List().Len()))
}

func lrange(ctx *context) resp.Value {
	start, err1 := parseIntArg(ctx.argStr(1))
	stop, err2 := parseIntArg(ctx.argStr(2))
	if err1 != nil || err2 != nil {
		return resp.MakeError(msgNotInteger)
	}
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeList)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeArray(nil)
	}
	return resp.MakeBulkArray(ent.List().Range(int(start), int(stop)))
}

func lindex(ctx *context) resp.Value {
	idx, err := parseIntArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeList)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return nilBulk()
	}
	v, got := ent.List().Index(int(idx))
	if !got {
		return nilBulk()
	}
	return resp.MakeBulkBytes(v)
}

func lset(ctx *context) resp.Value {
	key := ctx.argStr(0)
	idx, err := parseIntArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	ent, ok := ctx.lookupTyped(key, storage.TypeList)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeError(msgNoSuchKey)
	}
	if !ent.List().Set(int(idx), ctx.arg(2)) {
		return resp.MakeError(msgIndexRange)
	}
	ctx.db().Touch(key)
	ctx.signalWrite(classList, "lset", key)
	return okReply
}

func linsert(ctx *context) resp.Value {
	key := ctx.argStr(0)
	var before bool
	switch ctx.argUpper(1) {
	case "BEFORE":
		before = true
	case "AFTER":
	default:
		return syntaxErrReply
	}
	ent, ok := ctx.lookupTyped(key, storage.TypeList)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeInteger(0)
	}
	n := ent.List().Insert(before, ctx.arg(2), ctx.arg(3))
	if n < 0 {
		return resp.MakeInteger(-1)
	}
	ctx.db().Touch(key)
	ctx.signalWrite(classList, "linsert", key)
	return resp.MakeInteger(int64(n))
}

func lrem(ctx *context) resp.Value {
	key := ctx.argStr(0)
	count, err := parseIntArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	ent, ok := ctx.lookupTyped(key, storage.TypeList)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeInteger(0)
	}
	removed := ent.List().Remove(int(count), ctx.arg(2))
	if removed > 0 {
		db := ctx.db()
		db.Touch(key)
		ctx.notify(classList, "lrem", key)
		if ent.List().Len() == 0 {
			db.Delete(key)
			ctx.notify(classGeneric, "del", key)
		}
	}
	return resp.MakeInteger(int64(removed))
}

func ltrim(ctx *context) resp.Value {
	key := ctx.argStr(0)
	start, err1 := parseIntArg(ctx.argStr(1))
	stop, err2 := parseIntArg(ctx.argStr(2))
	if err1 != nil || err2 != nil {
		return resp.MakeError(msgNotInteger)
	}
	ent, ok := ctx.lookupTyped(key, storage.TypeList)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return okReply
	}
	lst := ent.List()
	lst.Trim(int(start), int(stop))
	db := ctx.db()
	db.Touch(key)
	ctx.notify(classList, "ltrim", key)
	if lst.Len() == 0 {
		db.Delete(key)
		ctx.notify(classGeneric, "del", key)
	}
	return okReply
}

func lpos(ctx *context) resp.Value {
	key := ctx.argStr(0)
	target := ctx.arg(1)

	rank, count, maxlen := 1, -1, 0
	hasCount := false
	i := 2
	for i < len(ctx.args) {
		if i+1 >= len(ctx.args) {
			return syntaxErrReply
		}
		n, err := parseIntArg(ctx.argStr(i + 1))
		if err != nil {
			return resp.MakeError(msgNotInteger)
		}
		switch ctx.argUpper(i) {
		case "RANK":
			if n == 0 {
				return resp.MakeError(msgLposRankZero)
			}
			rank = int(n)
		case "COUNT":
			if n < 0 {
				return resp.MakeError("ERR COUNT can't be negative")
			}
			count = int(n)
			hasCount = true
		case "MAXLEN":
			if n < 0 {
				return resp.MakeError("ERR MAXLEN can't be negative")
			}
			maxlen = int(n)
		default:
			return syntaxErrReply
		}
		i += 2
	}

	ent, ok := ctx.lookupTyped(key, storage.TypeList)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		if hasCount {
			return resp.MakeArray(nil)
		}
		return nilBulk()
	}

	wantAll := 0
	if hasCount {
		wantAll = count
	} else {
		wantAll = 1
	}
	positions := ent.List().Pos(target, rank, wantAll, maxlen)

	if !hasCount {
		if len(positions) == 0 {
			return nilBulk()
		}
		return resp.MakeInteger(int64(positions[0]))
	}
	out := make([]resp.Value, len(positions))
	for i, p := range positions {
		out[i] = resp.MakeInteger(int64(p))
	}
	return resp.MakeArray(out)
}

// moveOne pops from src on one side and pushes to dst on the other,
// returning the moved element
func (ctx *context) moveOne(srcKey, dstKey string, srcLeft, dstLeft bool) (resp.Value, bool) {
	srcEnt, ok := ctx.lookupTyped(srcKey, storage.TypeList)
	if !ok {
		return wrongTypeReply, true
	}
	dstEnt, ok := ctx.lookupTyped(dstKey, storage.TypeList)
	if !ok {
		return wrongTypeReply, true
	}
	if srcEnt == nil {
		return nilBulk(), false
	}

	src := srcEnt.List()
	var v []byte
	if srcLeft {
		v, _ = src.PopHead()
	} else {
		v, _ = src.PopTail()
	}

	var dst *storage.List
	if dstEnt == nil {
		dst = storage.NewList()
		ctx.db().Put(dstKey, &storage.Entity{Type: storage.TypeList, Value: dst})
	} else {
		dst = dstEnt.List()
	}
	if dstLeft {
		dst.PushHead(v)
	} else {
		dst.PushTail(v)
	}

	db := ctx.db()
	db.Touch(srcKey)
	db.Touch(dstKey)
	if srcLeft {
		ctx.notify(classList, "lpop", srcKey)
	} else {
		ctx.notify(classList, "rpop", srcKey)
	}
	if dstLeft {
		ctx.signalWrite(classList, "lpush", dstKey)
	} else {
		ctx.signalWrite(classList, "rpush", dstKey)
	}
	if src.Len() == 0 {
		db.Delete(srcKey)
		ctx.notify(classGeneric, "del", srcKey)
	}
	return resp.MakeBulkBytes(v), true
}

func parseSide(s string) (left bool, ok bool) {
	switch s {
	case "LEFT":
		return true, true
	case "RIGHT":
		return false, true
	}
	return false, false
}

func lmove(ctx *context) resp.Value {
	srcLeft, ok1 := parseSide(ctx.argUpper(2))
	dstLeft, ok2 := parseSide(ctx.argUpper(3))
	if !ok1 || !ok2 {
		return syntaxErrReply
	}
	res, _ := ctx.moveOne(ctx.argStr(0), ctx.argStr(1), srcLeft, dstLeft)
	return res
}

func rpoplpush(ctx *context) resp.Value {
	res, _ := ctx.moveOne(ctx.argStr(0), ctx.argStr(1), false, true)
	return res
}

// blockingPop covers BLPOP and BRPOP: attempt each key in order, park on
// all of them when nothing is available
func blockingPop(ctx *context, head bool) resp.Value {
	keyCount := len(ctx.args) - 1
	timeout, errRes, ok := parseTimeout(ctx.argStr(keyCount))
	if !ok {
		return errRes
	}
	keys := make([]string, keyCount)
	for i := 0; i < keyCount; i++ {
		keys[i] = ctx.argStr(i)
	}

	attempt := func() (resp.Value, bool) {
		for _, key := range keys {
			ent, ok := ctx.lookupTyped(key, storage.TypeList)
			if !ok {
				return wrongTypeReply, true
			}
			if ent == nil {
				continue
			}
			lst := ent.List()
			var v []byte
			if head {
				v, _ = lst.PopHead()
			} else {
				v, _ = lst.PopTail()
			}
			db := ctx.db()
			db.Touch(key)
			if head {
				ctx.notify(classList, "lpop", key)
			} else {
				ctx.notify(classList, "rpop", key)
			}
			if lst.Len() == 0 {
				db.Delete(key)
				ctx.notify(classGeneric, "del", key)
			}
			return resp.MakeArray([]resp.Value{
				resp.MakeBulkString(key),
				resp.MakeBulkBytes(v),
			}), true
		}
		return resp.Value{}, false
	}

	return ctx.maybeBlock(&blockRequest{
		keys:      keys,
		timeout:   timeout,
		attempt:   attempt,
		onTimeout: resp.MakeNilArray(),
	})
}

func blpop(ctx *context) resp.Value {
	return blockingPop(ctx, true)
}

func brpop(ctx *context) resp.Value {
	return blockingPop(ctx, false)
}

func blockingMove(ctx *context, srcLeft, dstLeft bool, timeoutIdx int) resp.Value {
	timeout, errRes, ok := parseTimeout(ctx.argStr(timeoutIdx))
	if !ok {
		return errRes
	}
	srcKey, dstKey := ctx.argStr(0), ctx.argStr(1)

	attempt := func() (resp.Value, bool) {
		res, done := ctx.moveOne(srcKey, dstKey, srcLeft, dstLeft)
		return res, done
	}

	return ctx.maybeBlock(&blockRequest{
		keys:      []string{srcKey},
		timeout:   timeout,
		attempt:   attempt,
		onTimeout: nilBulk(),
	})
}

func blmove(ctx *context) resp.Value {
	srcLeft, ok1 := parseSide(ctx.argUpper(2))
	dstLeft, ok2 := parseSide(ctx.argUpper(3))
	if !ok1 || !ok2 {
		return syntaxErrReply
	}
	return blockingMove(ctx, srcLeft, dstLeft, 4)
}

func brpoplpush(ctx *context) resp.Value {
	return blockingMove(ctx, false, true, 2)
}
