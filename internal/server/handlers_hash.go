package server

import (
	"math"

	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

func (ctx *context) hashForWrite(key string) (storage.Hash, resp.Value, bool) {
	ent, ok := ctx.lookupTyped(key, storage.TypeHash)
	if !ok {
		return nil, wrongTypeReply, false
	}
	if ent == nil {
		h := storage.NewHash()
		ctx.db().Put(key, &storage.Entity{Type: storage.TypeHash, Value: h})
		return h, resp.Value{}, true
	}
	return ent.Hash(), resp.Value{}, true
}

func hset(ctx *context) resp.Value {
	if len(ctx.args) < 3 || len(ctx.args)%2 != 1 {
		return resp.MakeErrorWrongNumberOfArguments("hset")
	}
	h, errRes, ok := ctx.hashForWrite(ctx.argStr(0))
	if !ok {
		return errRes
	}
	created := int64(0)
	for i := 1; i < len(ctx.args); i += 2 {
		if h.Set(ctx.argStr(i), ctx.arg(i+1)) {
			created++
		}
	}
	ctx.db().Touch(ctx.argStr(0))
	ctx.signalWrite(classHash, "hset", ctx.argStr(0))
	return resp.MakeInteger(created)
}

func hsetnx(ctx *context) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeHash)
	if !ok {
		return wrongTypeReply
	}
	if ent != nil {
		if _, exists := ent.Hash().Get(ctx.argStr(1)); exists {
			return resp.MakeInteger(0)
		}
	}
	h, errRes, ok := ctx.hashForWrite(key)
	if !ok {
		return errRes
	}
	h.Set(ctx.argStr(1), ctx.arg(2))
	ctx.db().Touch(key)
	ctx.signalWrite(classHash, "hset", key)
	return resp.MakeInteger(1)
}

func hmset(ctx *context) resp.Value {
	if len(ctx.args) < 3 || len(ctx.args)%2 != 1 {
		return resp.MakeErrorWrongNumberOfArguments("hmset")
	}
	h, errRes, ok := ctx.hashForWrite(ctx.argStr(0))
	if !ok {
		return errRes
	}
	for i := 1; i < len(ctx.args); i += 2 {
		h.Set(ctx.argStr(i), ctx.arg(i+1))
	}
	ctx.db().Touch(ctx.argStr(0))
	ctx.signalWrite(classHash, "hset", ctx.argStr(0))
	return okReply
}

func hget(ctx *context) resp.Value {
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeHash)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return nilBulk()
	}
	v, got := ent.Hash().Get(ctx.argStr(1))
	if !got {
		return nilBulk()
	}
	return resp.MakeBulkBytes(v)
}

func hmget(ctx *context) resp.Value {
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeHash)
	if !ok {
		return wrongTypeReply
	}
	out := make([]resp.Value, len(ctx.args)-1)
	for i := 1; i < len(ctx.args); i++ {
		if ent == nil {
			out[i-1] = nilBulk()
			continue
		}
		v, got := ent.Hash().Get(ctx.argStr(i))
		if !got {
			out[i-1] = nilBulk()
		} else {
			out[i-1] = resp.MakeBulkBytes(v)
		}
	}
	return resp.MakeArray(out)
}

func hdel(ctx *context) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeHash)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeInteger(0)
	}
	h := ent.Hash()
	deleted := int64(0)
	for i := 1; i < len(ctx.args); i++ {
		if h.Delete(ctx.argStr(i)) {
			deleted++
		}
	}
	if deleted > 0 {
		db := ctx.db()
		db.Touch(key)
		ctx.notify(classHash, "hdel", key)
		if len(h) == 0 {
			db.Delete(key)
			ctx.notify(classGeneric, "del", key)
		}
	}
	return resp.MakeInteger(deleted)
}

func hlen(ctx *context) resp.Value {
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeHash)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeInteger(0)
	}
	return resp.MakeInteger(int64(len(ent.Hash())))
}

func hexists(ctx *context) resp.Value {
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeHash)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeInteger(0)
	}
	if _, got := ent.Hash().Get(ctx.argStr(1)); got {
		return resp.MakeInteger(1)
	}
	return resp.MakeInteger(0)
}

func hkeys(ctx *context) resp.Value {
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeHash)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeArray(nil)
	}
	fields := ent.Hash().Fields()
	out := make([]resp.Value, len(fields))
	for i, f := range fields {
		out[i] = resp.MakeBulkString(f)
	}
	return resp.MakeArray(out)
}

func hvals(ctx *context) resp.Value {
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeHash)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeArray(nil)
	}
	h := ent.Hash()
	out := make([]resp.Value, 0, len(h))
	for _, f := range h.Fields() {
		v, _ := h.Get(f)
		out = append(out, resp.MakeBulkBytes(v))
	}
	return resp.MakeArray(out)
}

func hgetall(ctx *context) resp.Value {
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeHash)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeMap(nil)
	}
	h := ent.Hash()
	out := make([]resp.Value, 0, len(h)*2)
	for _, f := range h.Fields() {
		v, _ := h.Get(f)
		out = append(out, resp.MakeBulkString(f), resp.MakeBulkBytes(v))
	}
	return resp.MakeMap(out)
}

func hincrby(ctx *context) resp.Value {
	key := ctx.argStr(0)
	field := ctx.argStr(1)
	delta, err := parseIntArg(ctx.argStr(2))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	h, errRes, ok := ctx.hashForWrite(key)
	if !ok {
		return errRes
	}

	var cur int64
	if v, got := h.Get(field); got {
		n, err := storage.ParseStrictInt64(v)
		if err != nil {
			return resp.MakeError("ERR hash value is not an integer")
		}
		cur = n
	}
	if (delta > 0 && cur > math.MaxInt64-delta) ||
		(delta < 0 && cur < math.MinInt64-delta) {
		return resp.MakeError(msgIncrByOverflow)
	}
	cur += delta
	h.Set(field, storage.FormatInt(cur))
	ctx.db().Touch(key)
	ctx.signalWrite(classHash, "hincrby", key)
	return resp.MakeInteger(cur)
}

func hincrbyfloat(ctx *context) resp.Value {
	key := ctx.argStr(0)
	field := ctx.argStr(1)
	delta, err := parseFloatArg(ctx.argStr(2))
	if err != nil {
		return resp.MakeError(msgNotFloat)
	}
	h, errRes, ok := ctx.hashForWrite(key)
	if !ok {
		return errRes
	}

	var cur float64
	if v, got := h.Get(field); got {
		f, err := parseFloatArg(string(v))
		if err != nil {
			return resp.MakeError("ERR hash value is not a float")
		}
		cur = f
	}
	cur += delta
	if math.IsNaN(cur) || math.IsInf(cur, 0) {
		return resp.MakeError("ERR increment would produce NaN or Infinity")
	}
	formatted := []byte(resp.FormatFloat(cur))
	h.Set(field, formatted)
	ctx.db().Touch(key)
	ctx.signalWrite(classHash, "hincrbyfloat", key)
	return resp.MakeBulkBytes(formatted)
}

func hstrlen(ctx *context) resp.Value {
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeHash)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeInteger(0)
	}
	v, got := ent.Hash().Get(ctx.argStr(1))
	if !got {
		return resp.MakeInteger(0)
	}
	return resp.MakeInteger(int64(len(v)))
}

func hrandfield(ctx *context) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeHash)
	if !ok {
		return wrongTypeReply
	}

	count := 1
	hasCount := false
	withValues := false
	if len(ctx.args) >= 2 {
		n, err := parseIntArg(ctx.argStr(1))
		if err != nil {
			return resp.MakeError(msgNotInteger)
		}
		count = int(n)
		hasCount = true
	}
	if len(ctx.args) == 3 {
		if ctx.argUpper(2) != "WITHVALUES" {
			return syntaxErrReply
		}
		withValues = true
	}

	if ent == nil {
		if hasCount {
			return resp.MakeArray(nil)
		}
		return nilBulk()
	}
	h := ent.Hash()

	var fields []string
	if !hasCount {
		fields = h.RandFields(ctx.eng.rng, 1)
		if len(fields) == 0 {
			return nilBulk()
		}
		return resp.MakeBulkString(fields[0])
	}
	if count >= 0 {
		fields = h.RandFields(ctx.eng.rng, count)
	} else {
		// negative count allows repetition
		all := h.Fields()
		fields = make([]string, -count)
		for i := range fields {
			fields[i] = all[ctx.eng.rng.Intn(len(all))]
		}
	}

	out := make([]resp.Value, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, resp.MakeBulkString(f))
		if withValues {
			v, _ := h.Get(f)
			out = append(out, resp.MakeBulkBytes(v))
		}
	}
	return resp.MakeArray(out)
}

func hscan(ctx *context) resp.Value {
	key := ctx.argStr(0)
	cursor, err := parseIntArg(ctx.argStr(1))
	if err != nil || cursor < 0 {
		return resp.MakeError("ERR invalid cursor")
	}
	opts, errRes, ok := parseScanArgs(ctx, 2, false)
	if !ok {
		return errRes
	}
	ent, typeOK := ctx.lookupTyped(key, storage.TypeHash)
	if !typeOK {
		return wrongTypeReply
	}
	if ent == nil {
		return scanReply(0, nil)
	}
	h := ent.Hash()
	next, window := scanWindow(h.Fields(), int(cursor), opts.count)
	items := make([]resp.Value, 0, len(window)*2)
	for _, f := range window {
		if opts.hasMatch && !storage.GlobMatch(opts.match, f) {
			continue
		}
		v, _ := h.Get(f)
		items = append(items, resp.MakeBulkString(f), resp.MakeBulkBytes(v))
	}
	return scanReply(next, items)
}
