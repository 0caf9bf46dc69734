package server

import (
	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

func pfadd(ctx *context) resp.Value {
	key := ctx.argStr(0)
	ent, ok := ctx.lookupTyped(key, storage.TypeString)
	if !ok {
		return wrongTypeReply
	}
	var data []byte
	if ent != nil {
		data = ent.Bytes()
	}

	updated, changed, err := storage.HLLAdd(data, ctx.args[1:])
	if err != nil {
		return resp.MakeError(err.Error())
	}
	if !changed && ent != nil {
		return resp.MakeInteger(0)
	}

	db := ctx.db()
	if ent != nil {
		ent.SetBytes(updated)
		db.Touch(key)
	} else {
		db.PutKeepTTL(key, storage.NewStringEntity(updated))
	}
	ctx.signalWrite(classString, "pfadd", key)
	return resp.MakeInteger(1)
}

func pfcount(ctx *context) resp.Value {
	datas := make([][]byte, 0, len(ctx.args))
	for i := range ctx.args {
		ent, ok := ctx.lookupTyped(ctx.argStr(i), storage.TypeString)
		if !ok {
			return wrongTypeReply
		}
		if ent != nil {
			datas = append(datas, ent.Bytes())
		}
	}
	n, err := storage.HLLCount(datas...)
	if err != nil {
		return resp.MakeError(err.Error())
	}
	return resp.MakeInteger(n)
}

func pfmerge(ctx *context) resp.Value {
	dst := ctx.argStr(0)
	datas := make([][]byte, 0, len(ctx.args))
	for i := range ctx.args {
		ent, ok := ctx.lookupTyped(ctx.argStr(i), storage.TypeString)
		if !ok {
			return wrongTypeReply
		}
		if ent != nil {
			datas = append(datas, ent.Bytes())
		}
	}
	merged, err := storage.HLLMerge(datas...)
	if err != nil {
		return resp.MakeError(err.Error())
	}

	db := ctx.db()
	if ent := db.Lookup(dst); ent != nil {
		ent.SetBytes(merged)
		db.Touch(dst)
	} else {
		db.Put(dst, storage.NewStringEntity(merged))
	}
	ctx.signalWrite(classString, "pfadd", dst)
	return okReply
}
