package server

import (
	"github.com/eternalApril/moonbeam/internal/resp"
)

func multi(ctx *context) resp.Value {
	if ctx.conn.tx != txNone {
		return resp.MakeError(msgNestedMulti)
	}
	ctx.conn.tx = txQueuing
	ctx.conn.queue = nil
	return okReply
}

func watch(ctx *context) resp.Value {
	if ctx.conn.tx != txNone {
		return resp.MakeError(msgWatchInMulti)
	}
	if ctx.conn.watches == nil {
		ctx.conn.watches = make(map[watchKey]uint64)
	}
	for i := range ctx.args {
		key := ctx.argStr(i)
		wk := watchKey{db: ctx.conn.db, key: key}
		if _, seen := ctx.conn.watches[wk]; !seen {
			ctx.conn.watches[wk] = ctx.db().Version(key)
		}
	}
	return okReply
}

func unwatch(ctx *context) resp.Value {
	ctx.conn.watches = nil
	return okReply
}

func discard(ctx *context) resp.Value {
	if ctx.conn.tx == txNone {
		return resp.MakeError(msgDiscardNoMulti)
	}
	ctx.conn.tx = txNone
	ctx.conn.queue = nil
	ctx.conn.watches = nil
	return okReply
}

func exec(ctx *context) resp.Value {
	conn := ctx.conn
	if conn.tx == txNone {
		return resp.MakeError(msgExecNoMulti)
	}
	dirty := conn.tx == txDirty
	queue := conn.queue
	watches := conn.watches
	conn.tx = txNone
	conn.queue = nil
	conn.watches = nil

	if dirty {
		return resp.MakeError(msgExecAbort)
	}

	// optimistic check: a single modified watched key aborts the whole
	// transaction with a nil reply
	for wk, captured := range watches {
		if ctx.eng.dbs[wk.db].Version(wk.key) != captured {
			return resp.MakeNilArray()
		}
	}

	// the queue runs as one atomic unit: the engine lock is already held
	// and never released in between. Runtime errors land in their reply
	// slot; there is no rollback.
	results := make([]resp.Value, len(queue))
	for i, qc := range queue {
		cmd := ctx.eng.commands[qc.name]
		results[i] = ctx.eng.callLocked(conn, cmd, qc.name, qc.args, true)
	}
	return resp.MakeArray(results)
}

func reset(ctx *context) resp.Value {
	conn := ctx.conn
	e := ctx.eng
	for ch := range conn.channels {
		e.unsubscribeLocked(conn, ch)
	}
	for pat := range conn.patterns {
		e.punsubscribeLocked(conn, pat)
	}
	conn.resetState()
	conn.authenticated = e.requirePass() == ""
	return resp.MakeSimpleString("RESET")
}
