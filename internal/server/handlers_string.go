package server

import (
	"math"
	"strings"

	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

func get(ctx *context) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		ctx.notify(classKeyMiss, "keymiss", key)
		return nilBulk()
	}
	return resp.MakeBulkBytes(ent.Bytes())
}

// setOptions is the parsed SET flag grammar
type setOptions struct {
	nx, xx    bool
	get       bool
	keepTTL   bool
	expireAt  int64 // unix ms, 0 = none
	hasExpire bool
}

func parseSetOptions(ctx *context, from int) (setOptions, resp.Value, bool) {
	var opts setOptions
	i := from
	for i < len(ctx.args) {
		switch ctx.argUpper(i) {
		case "NX":
			opts.nx = true
			i++
		case "XX":
			opts.xx = true
			i++
		case "GET":
			opts.get = true
			i++
		case "KEEPTTL":
			opts.keepTTL = true
			i++
		case "EX", "PX", "EXAT", "PXAT":
			if opts.hasExpire || opts.keepTTL || i+1 >= len(ctx.args) {
				return opts, syntaxErrReply, false
			}
			n, err := parseIntArg(ctx.argStr(i + 1))
			if err != nil {
				return opts, resp.MakeError(msgNotInteger), false
			}
			switch ctx.argUpper(i) {
			case "EX":
				opts.expireAt = ctx.nowMs() + n*1000
			case "PX":
				opts.expireAt = ctx.nowMs() + n
			case "EXAT":
				opts.expireAt = n * 1000
			case "PXAT":
				opts.expireAt = n
			}
			opts.hasExpire = true
			i += 2
		default:
			return opts, syntaxErrReply, false
		}
	}
	if opts.nx && opts.xx {
		return opts, syntaxErrReply, false
	}
	return opts, resp.Value{}, true
}

func set(ctx *context) resp.Value {
	key := ctx.argStr(0)
	value := ctx.arg(1)

	opts, errRes, ok := parseSetOptions(ctx, 2)
	if !ok {
		return errRes
	}

	db := ctx.db()
	old := db.Lookup(key)
	if opts.get && wrongType(old, storage.TypeString) {
		return wrongTypeReply
	}

	failed := (opts.nx && old != nil) || (opts.xx && old == nil)
	var oldReply resp.Value
	if opts.get {
		if old == nil {
			oldReply = nilBulk()
		} else {
			oldReply = resp.MakeBulkBytes(old.Bytes())
		}
	}
	if failed {
		if opts.get {
			return oldReply
		}
		return nilBulk()
	}

	ent := storage.NewStringEntity(value)
	if opts.keepTTL {
		db.PutKeepTTL(key, ent)
	} else {
		db.Put(key, ent)
	}
	if opts.hasExpire {
		db.SetExpireAt(key, opts.expireAt)
	}
	ctx.signalWrite(classString, "set", key)

	if opts.get {
		return oldReply
	}
	return okReply
}

func setnx(ctx *context) resp.Value {
	key := ctx.argStr(0)
	db := ctx.db()
	if db.Exists(key) {
		return resp.MakeInteger(0)
	}
	db.Put(key, storage.NewStringEntity(ctx.arg(1)))
	ctx.signalWrite(classString, "set", key)
	return resp.MakeInteger(1)
}

func setex(ctx *context) resp.Value {
	return setWithLifetime(ctx, 1000)
}

func psetex(ctx *context) resp.Value {
	return setWithLifetime(ctx, 1)
}

func setWithLifetime(ctx *context, unitMs int64) resp.Value {
	key := ctx.argStr(0)
	n, err := parseIntArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	if n <= 0 {
		return resp.MakeError("ERR invalid expire time in '" + strings.ToLower(ctx.name) + "' command")
	}
	db := ctx.db()
	db.Put(key, storage.NewStringEntity(ctx.arg(2)))
	db.SetExpireAt(key, ctx.nowMs()+n*unitMs)
	ctx.signalWrite(classString, "set", key)
	return okReply
}

func getset(ctx *context) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	var old resp.Value
	if ent == nil {
		old = nilBulk()
	} else {
		old = resp.MakeBulkBytes(ent.Bytes())
	}
	ctx.db().Put(key, storage.NewStringEntity(ctx.arg(1)))
	ctx.signalWrite(classString, "set", key)
	return old
}

func getdel(ctx *context) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return nilBulk()
	}
	out := resp.MakeBulkBytes(ent.Bytes())
	ctx.db().Delete(key)
	ctx.notify(classGeneric, "del", key)
	return out
}

func getex(ctx *context) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return nilBulk()
	}

	db := ctx.db()
	persist := false
	var expireAt int64
	i := 1
	for i < len(ctx.args) {
		switch ctx.argUpper(i) {
		case "PERSIST":
			if expireAt != 0 {
				return syntaxErrReply
			}
			persist = true
			i++
		case "EX", "PX", "EXAT", "PXAT":
			if persist || expireAt != 0 || i+1 >= len(ctx.args) {
				return syntaxErrReply
			}
			n, err := parseIntArg(ctx.argStr(i + 1))
			if err != nil {
				return resp.MakeError(msgNotInteger)
			}
			switch ctx.argUpper(i) {
			case "EX":
				expireAt = ctx.nowMs() + n*1000
			case "PX":
				expireAt = ctx.nowMs() + n
			case "EXAT":
				expireAt = n * 1000
			case "PXAT":
				expireAt = n
			}
			i += 2
		default:
			return syntaxErrReply
		}
	}

	out := resp.MakeBulkBytes(ent.Bytes())
	if persist {
		db.Persist(key)
	} else if expireAt != 0 {
		db.SetExpireAt(key, expireAt)
		ctx.notify(classGeneric, "expire", key)
	}
	return out
}

func appendCmd(ctx *context) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	db := ctx.db()
	var data []byte
	if ent != nil {
		data = append(append([]byte(nil), ent.Bytes()...), ctx.arg(1)...)
		ent.SetBytes(data)
		db.Touch(key)
	} else {
		data = ctx.arg(1)
		db.PutKeepTTL(key, storage.NewStringEntity(data))
	}
	ctx.signalWrite(classString, "append", key)
	return resp.MakeInteger(int64(len(data)))
}

func strlen(ctx *context) resp.Value {
	ent, ok := ctx.lookupTyped(ctx.argStr(0), storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeInteger(0)
	}
	return resp.MakeInteger(int64(len(ent.Bytes())))
}

func incr(ctx *context) resp.Value {
	return incrByAmount(ctx, 1)
}

func decr(ctx *context) resp.Value {
	return incrByAmount(ctx, -1)
}

func incrby(ctx *context) resp.Value {
	n, err := parseIntArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	return incrByAmount(ctx, n)
}

func decrby(ctx *context) resp.Value {
	n, err := parseIntArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	if n == math.MinInt64 {
		return resp.MakeError(msgIncrOverflow)
	}
	return incrByAmount(ctx, -n)
}

func incrByAmount(ctx *context, delta int64) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}

	var cur int64
	if ent != nil {
		n, err := storage.ParseStrictInt64(ent.Bytes())
		if err != nil {
			return resp.MakeError(msgNotInteger)
		}
		cur = n
	}

	if (delta > 0 && cur > math.MaxInt64-delta) ||
		(delta < 0 && cur < math.MinInt64-delta) {
		return resp.MakeError(msgIncrOverflow)
	}
	cur += delta

	db := ctx.db()
	if ent != nil {
		ent.SetBytes(storage.FormatInt(cur))
		db.Touch(key)
	} else {
		db.PutKeepTTL(key, storage.NewStringEntity(storage.FormatInt(cur)))
	}
	ctx.signalWrite(classString, "incrby", key)
	return resp.MakeInteger(cur)
}

func incrbyfloat(ctx *context) resp.Value {
	key := ctx.argStr(0)
	delta, err := parseFloatArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotFloat)
	}
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}

	var cur float64
	if ent != nil {
		f, err := parseFloatArg(string(ent.Bytes()))
		if err != nil {
			return resp.MakeError(msgNotFloat)
		}
		cur = f
	}
	cur += delta
	if math.IsNaN(cur) || math.IsInf(cur, 0) {
		return resp.MakeError("ERR increment would produce NaN or Infinity")
	}

	formatted := []byte(resp.FormatFloat(cur))
	db := ctx.db()
	if ent != nil {
		ent.SetBytes(formatted)
		db.Touch(key)
	} else {
		db.PutKeepTTL(key, storage.NewStringEntity(formatted))
	}
	ctx.signalWrite(classString, "incrbyfloat", key)
	return resp.MakeBulkBytes(formatted)
}

func mget(ctx *context) resp.Value {
	out := make([]resp.Value, len(ctx.args))
	for i := range ctx.args {
		ent := ctx.db().Lookup(ctx.argStr(i))
		if ent == nil || ent.Type != storage.TypeString {
			out[i] = nilBulk()
		} else {
			out[i] = resp.MakeBulkBytes(ent.Bytes())
		}
	}
	return resp.MakeArray(out)
}

func mset(ctx *context) resp.Value {
	if len(ctx.args)%2 != 0 {
		return resp.MakeErrorWrongNumberOfArguments("mset")
	}
	db := ctx.db()
	for i := 0; i < len(ctx.args); i += 2 {
		key := ctx.argStr(i)
		db.Put(key, storage.NewStringEntity(ctx.arg(i+1)))
		ctx.signalWrite(classString, "set", key)
	}
	return okReply
}

func msetnx(ctx *context) resp.Value {
	if len(ctx.args)%2 != 0 {
		return resp.MakeErrorWrongNumberOfArguments("msetnx")
	}
	db := ctx.db()
	for i := 0; i < len(ctx.args); i += 2 {
		if db.Exists(ctx.argStr(i)) {
			return resp.MakeInteger(0)
		}
	}
	for i := 0; i < len(ctx.args); i += 2 {
		key := ctx.argStr(i)
		db.Put(key, storage.NewStringEntity(ctx.arg(i+1)))
		ctx.signalWrite(classString, "set", key)
	}
	return resp.MakeInteger(1)
}

func setrange(ctx *context) resp.Value {
	key := ctx.argStr(0)
	offset, err := parseIntArg(ctx.argStr(1))
	if err != nil || offset < 0 {
		return resp.MakeError(msgOffsetRange)
	}
	chunk := ctx.arg(2)

	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	var data []byte
	if ent != nil {
		data = ent.Bytes()
	}
	if len(chunk) == 0 {
		return resp.MakeInteger(int64(len(data)))
	}
	if offset+int64(len(chunk)) > resp.MaxBulkLen {
		return resp.MakeError(msgStringExceeds)
	}

	need := int(offset) + len(chunk)
	if need > len(data) {
		grown := make([]byte, need)
		copy(grown, data)
		data = grown
	}
	copy(data[offset:], chunk)

	db := ctx.db()
	if ent != nil {
		ent.SetBytes(data)
		db.Touch(key)
	} else {
		db.PutKeepTTL(key, storage.NewStringEntity(data))
	}
	ctx.signalWrite(classString, "setrange", key)
	return resp.MakeInteger(int64(len(data)))
}

func getrange(ctx *context) resp.Value {
	key := ctx.argStr(0)
	start, err1 := parseIntArg(ctx.argStr(1))
	end, err2 := parseIntArg(ctx.argStr(2))
	if err1 != nil || err2 != nil {
		return resp.MakeError(msgNotInteger)
	}
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	if ent == nil {
		return resp.MakeBulkString("")
	}
	data := ent.Bytes()
	n := int64(len(data))
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end >= n {
		end = n - 1
	}
	if start > end || n == 0 {
		return resp.MakeBulkString("")
	}
	return resp.MakeBulkBytes(data[start : end+1])
}
