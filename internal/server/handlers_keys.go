package server

import (
	"strconv"

	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

func del(ctx *context) resp.Value {
	deleted := int64(0)
	for i := range ctx.args {
		key := ctx.argStr(i)
		if ctx.db().Delete(key) {
			ctx.notify(classGeneric, "del", key)
			deleted++
		}
	}
	return resp.MakeInteger(deleted)
}

func exists(ctx *context) resp.Value {
	n := int64(0)
	for i := range ctx.args {
		if ctx.db().Exists(ctx.argStr(i)) {
			n++
		}
	}
	return resp.MakeInteger(n)
}

func typeCmd(ctx *context) resp.Value {
	ent := ctx.db().Lookup(ctx.argStr(0))
	if ent == nil {
		return resp.MakeSimpleString("none")
	}
	return resp.MakeSimpleString(ent.Type.Name())
}

func keys(ctx *context) resp.Value {
	matched := ctx.db().Keys(ctx.argStr(0))
	out := make([]resp.Value, len(matched))
	for i, k := range matched {
		out[i] = resp.MakeBulkString(k)
	}
	return resp.MakeArray(out)
}

func scan(ctx *context) resp.Value {
	cursor, err := parseIntArg(ctx.argStr(0))
	if err != nil || cursor < 0 {
		return resp.MakeError("ERR invalid cursor")
	}
	opts, errRes, ok := parseScanArgs(ctx, 1, true)
	if !ok {
		return errRes
	}

	all := ctx.db().Keys("*")
	next, window := scanWindow(all, int(cursor), opts.count)

	items := make([]resp.Value, 0, len(window))
	for _, key := range window {
		if opts.hasMatch && !storage.GlobMatch(opts.match, key) {
			continue
		}
		if opts.typeName != "" {
			ent := ctx.db().Lookup(key)
			if ent == nil || ent.Type.Name() != opts.typeName {
				continue
			}
		}
		items = append(items, resp.MakeBulkString(key))
	}
	return scanReply(next, items)
}

func rename(ctx *context) resp.Value {
	src, dst := ctx.argStr(0), ctx.argStr(1)
	db := ctx.db()
	if !db.Exists(src) {
		return resp.MakeError(msgNoSuchKey)
	}
	db.Rename(src, dst)
	ctx.notify(classGeneric, "rename_from", src)
	ctx.signalWrite(classGeneric, "rename_to", dst)
	return okReply
}

func renamenx(ctx *context) resp.Value {
	src, dst := ctx.argStr(0), ctx.argStr(1)
	db := ctx.db()
	if !db.Exists(src) {
		return resp.MakeError(msgNoSuchKey)
	}
	if db.Exists(dst) {
		return resp.MakeInteger(0)
	}
	db.Rename(src, dst)
	ctx.notify(classGeneric, "rename_from", src)
	ctx.signalWrite(classGeneric, "rename_to", dst)
	return resp.MakeInteger(1)
}

func copyCmd(ctx *context) resp.Value {
	src, dst := ctx.argStr(0), ctx.argStr(1)
	dstDB := ctx.db()
	replace := false

	i := 2
	for i < len(ctx.args) {
		switch ctx.argUpper(i) {
		case "DB":
			if i+1 >= len(ctx.args) {
				return syntaxErrReply
			}
			n, err := parseIntArg(ctx.argStr(i + 1))
			if err != nil || n < 0 || int(n) >= len(ctx.eng.dbs) {
				return resp.MakeError(msgDBIndexRange)
			}
			dstDB = ctx.eng.dbs[n]
			i += 2
		case "REPLACE":
			replace = true
			i++
		default:
			return syntaxErrReply
		}
	}

	if dstDB.Index == ctx.db().Index && src == dst {
		return resp.MakeError(msgSameObject)
	}
	if !ctx.db().Copy(src, dstDB, dst, replace) {
		return resp.MakeInteger(0)
	}
	ctx.eng.notifyLocked(dstDB.Index, classGeneric, "copy_to", dst)
	ctx.eng.signalKeyLocked(dstDB.Index, dst)
	return resp.MakeInteger(1)
}

func move(ctx *context) resp.Value {
	key := ctx.argStr(0)
	n, err := parseIntArg(ctx.argStr(1))
	if err != nil || n < 0 || int(n) >= len(ctx.eng.dbs) {
		return resp.MakeError(msgDBIndexRange)
	}
	dstDB := ctx.eng.dbs[n]
	if dstDB.Index == ctx.db().Index {
		return resp.MakeError(msgSameObject)
	}
	if !ctx.db().Move(key, dstDB) {
		return resp.MakeInteger(0)
	}
	ctx.notify(classGeneric, "move_from", key)
	ctx.eng.notifyLocked(dstDB.Index, classGeneric, "move_to", key)
	ctx.eng.signalKeyLocked(dstDB.Index, key)
	return resp.MakeInteger(1)
}

func randomkey(ctx *context) resp.Value {
	key := ctx.db().RandomKey(ctx.eng.rng)
	if key == "" {
		return nilBulk()
	}
	return resp.MakeBulkString(key)
}

func touch(ctx *context) resp.Value {
	n := int64(0)
	for i := range ctx.args {
		if ctx.db().Exists(ctx.argStr(i)) {
			n++
		}
	}
	return resp.MakeInteger(n)
}

// expireGeneric covers EXPIRE/PEXPIRE/EXPIREAT/PEXPIREAT with the
// NX|XX|GT|LT flags; unitMs scales the argument, absolute marks the AT
// variants
func expireGeneric(ctx *context, unitMs int64, absolute bool) resp.Value {
	key := ctx.argStr(0)
	n, err := parseIntArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}

	var nx, xx, gt, lt bool
	for i := 2; i < len(ctx.args); i++ {
		switch ctx.argUpper(i) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		default:
			return resp.MakeError("ERR Unsupported option " + ctx.argStr(i))
		}
	}
	if (nx && (xx || gt || lt)) || (gt && lt) {
		return resp.MakeError(msgExpireOpts)
	}

	db := ctx.db()
	cur := db.ExpireAt(key)
	if cur == -1 {
		return resp.MakeInteger(0)
	}

	var at int64
	if absolute {
		at = n * unitMs
	} else {
		at = ctx.nowMs() + n*unitMs
	}

	switch {
	case nx && cur != 0:
		return resp.MakeInteger(0)
	case xx && cur == 0:
		return resp.MakeInteger(0)
	case gt && (cur == 0 || at <= cur):
		return resp.MakeInteger(0)
	case lt && cur != 0 && at >= cur:
		return resp.MakeInteger(0)
	}

	if at <= ctx.nowMs() {
		db.Delete(key)
		ctx.notify(classGeneric, "del", key)
		return resp.MakeInteger(1)
	}
	db.SetExpireAt(key, at)
	ctx.notify(classGeneric, "expire", key)
	return resp.MakeInteger(1)
}

func expire(ctx *context) resp.Value {
	return expireGeneric(ctx, 1000, false)
}

func pexpire(ctx *context) resp.Value {
	return expireGeneric(ctx, 1, false)
}

func expireat(ctx *context) resp.Value {
	return expireGeneric(ctx, 1000, true)
}

func pexpireat(ctx *context) resp.Value {
	return expireGeneric(ctx, 1, true)
}

func ttl(ctx *context) resp.Value {
	ms := ctx.db().TTLms(ctx.argStr(0))
	if ms < 0 {
		return resp.MakeInteger(ms)
	}
	return resp.MakeInteger((ms + 999) / 1000)
}

func pttl(ctx *context) resp.Value {
	return resp.MakeInteger(ctx.db().TTLms(ctx.argStr(0)))
}

func expiretime(ctx *context) resp.Value {
	at := ctx.db().ExpireAt(ctx.argStr(0))
	switch at {
	case -1:
		return resp.MakeInteger(-2)
	case 0:
		return resp.MakeInteger(-1)
	}
	return resp.MakeInteger(at / 1000)
}

func pexpiretime(ctx *context) resp.Value {
	at := ctx.db().ExpireAt(ctx.argStr(0))
	switch at {
	case -1:
		return resp.MakeInteger(-2)
	case 0:
		return resp.MakeInteger(-1)
	}
	return resp.MakeInteger(at)
}

func persist(ctx *context) resp.Value {
	key := ctx.argStr(0)
	if !ctx.db().Persist(key) {
		return resp.MakeInteger(0)
	}
	ctx.notify(classGeneric, "persist", key)
	return resp.MakeInteger(1)
}

func dbsize(ctx *context) resp.Value {
	return resp.MakeInteger(int64(ctx.db().Size()))
}

func flushdb(ctx *context) resp.Value {
	ctx.db().Flush()
	return okReply
}

func flushall(ctx *context) resp.Value {
	for _, db := range ctx.eng.dbs {
		db.Flush()
	}
	return okReply
}

// objectCmd resolves the OBJECT subcommand table
func objectCmd(ctx *context) resp.Value {
	sub := ctx.argUpper(0)
	switch sub {
	case "HELP":
		return resp.MakeArray([]resp.Value{
			resp.MakeSimpleString("OBJECT <subcommand> [<arg> ...]. Subcommands are:"),
			resp.MakeSimpleString("ENCODING <key>"),
			resp.MakeSimpleString("FREQ <key>"),
			resp.MakeSimpleString("IDLETIME <key>"),
			resp.MakeSimpleString("REFCOUNT <key>"),
		})
	case "ENCODING", "REFCOUNT", "IDLETIME", "FREQ":
		if len(ctx.args) != 2 {
			return errUnknownSubcommand(ctx.argStr(0), "OBJECT")
		}
		ent := ctx.db().Lookup(ctx.argStr(1))
		if ent == nil {
			return resp.MakeError(msgNoSuchKey)
		}
		switch sub {
		case "ENCODING":
			return resp.MakeBulkString(ctx.objectEncoding(ent))
		case "REFCOUNT", "IDLETIME":
			return resp.MakeInteger(0)
		case "FREQ":
			return resp.MakeError("ERR An LFU maxmemory policy is not selected, access frequency not tracked. Please note that when switching between maxmemory policies at runtime LFU and LRU data will take some time to adjust.")
		}
	}
	return errUnknownSubcommand(ctx.argStr(0), "OBJECT")
}

// objectEncoding computes the observable encoding from the value shape and
// the runtime thresholds; nothing is stored
func (ctx *context) objectEncoding(ent *storage.Entity) string {
	cfgInt := func(name string, def int) int {
		n, err := strconv.Atoi(ctx.eng.configMap[name])
		if err != nil {
			return def
		}
		return n
	}

	switch ent.Type {
	case storage.TypeString:
		data := ent.Bytes()
		if _, err := storage.ParseStrictInt64(data); err == nil {
			return "int"
		}
		if len(data) <= 44 {
			return "embstr"
		}
		return "raw"

	case storage.TypeList:
		if ent.List().Len() <= cfgInt("list-max-listpack-size", 128) {
			return "listpack"
		}
		return "quicklist"

	case storage.TypeHash:
		h := ent.Hash()
		if len(h) <= cfgInt("hash-max-listpack-entries", 128) && hashFitsListpack(h, cfgInt("hash-max-listpack-value", 64)) {
			return "listpack"
		}
		return "hashtable"

	case storage.TypeSet:
		s := ent.Set()
		if setAllInts(s) && len(s) <= cfgInt("set-max-intset-entries", 512) {
			return "intset"
		}
		if len(s) <= cfgInt("set-max-listpack-entries", 128) {
			maxVal := cfgInt("set-max-listpack-value", 64)
			for m := range s {
				if len(m) > maxVal {
					return "hashtable"
				}
			}
			return "listpack"
		}
		return "hashtable"

	case storage.TypeZSet:
		z := ent.ZSet()
		if z.Card() <= cfgInt("zset-max-listpack-entries", 128) {
			maxVal := cfgInt("zset-max-listpack-value", 64)
			for _, m := range z.Members() {
				if len(m.Member) > maxVal {
					return "skiplist"
				}
			}
			return "listpack"
		}
		return "skiplist"

	case storage.TypeStream:
		return "stream"
	}
	return "unknown"
}

func hashFitsListpack(h storage.Hash, maxVal int) bool {
	for f, v := range h {
		if len(f) > maxVal || len(v) > maxVal {
			return false
		}
	}
	return true
}

func setAllInts(s storage.Set) bool {
	for m := range s {
		if _, err := storage.ParseStrictInt64([]byte(m)); err != nil {
			return false
		}
	}
	return true
}
