package server

import (
	"github.com/eternalApril/moonbeam/internal/resp"
)

// subscription confirmations are push frames carrying the running
// subscription count
func subConfirmation(kind, name string, count int) resp.Value {
	return resp.MakePush([]resp.Value{
		resp.MakeBulkString(kind),
		resp.MakeBulkString(name),
		resp.MakeInteger(int64(count)),
	})
}

func subscribe(ctx *context) resp.Value {
	e := ctx.eng
	for i := range ctx.args {
		ch := ctx.argStr(i)
		e.subscribeLocked(ctx.conn, ch)
		e.deliver(ctx.conn, subConfirmation("subscribe", ch, ctx.conn.subscriberCount()))
	}
	return noReply
}

func unsubscribe(ctx *context) resp.Value {
	e := ctx.eng
	channels := make([]string, 0, len(ctx.args))
	if len(ctx.args) == 0 {
		for ch := range ctx.conn.channels {
			channels = append(channels, ch)
		}
	} else {
		for i := range ctx.args {
			channels = append(channels, ctx.argStr(i))
		}
	}
	if len(channels) == 0 {
		e.deliver(ctx.conn, subConfirmation("unsubscribe", "", 0))
		return noReply
	}
	for _, ch := range channels {
		e.unsubscribeLocked(ctx.conn, ch)
		e.deliver(ctx.conn, subConfirmation("unsubscribe", ch, ctx.conn.subscriberCount()))
	}
	return noReply
}

func psubscribe(ctx *context) resp.Value {
	e := ctx.eng
	for i := range ctx.args {
		pat := ctx.argStr(i)
		e.psubscribeLocked(ctx.conn, pat)
		e.deliver(ctx.conn, subConfirmation("psubscribe", pat, ctx.conn.subscriberCount()))
	}
	return noReply
}

func punsubscribe(ctx *context) resp.Value {
	e := ctx.eng
	patterns := make([]string, 0, len(ctx.args))
	if len(ctx.args) == 0 {
		for pat := range ctx.conn.patterns {
			patterns = append(patterns, pat)
		}
	} else {
		for i := range ctx.args {
			patterns = append(patterns, ctx.argStr(i))
		}
	}
	if len(patterns) == 0 {
		e.deliver(ctx.conn, subConfirmation("punsubscribe", "", 0))
		return noReply
	}
	for _, pat := range patterns {
		e.punsubscribeLocked(ctx.conn, pat)
		e.deliver(ctx.conn, subConfirmation("punsubscribe", pat, ctx.conn.subscriberCount()))
	}
	return noReply
}

func publish(ctx *context) resp.Value {
	count := ctx.eng.publishLocked(ctx.argStr(0), ctx.arg(1))
	return resp.MakeInteger(count)
}

func pubsub(ctx *context) resp.Value {
	e := ctx.eng
	switch ctx.argUpper(0) {
	case "CHANNELS":
		pattern := ""
		if len(ctx.args) == 2 {
			pattern = ctx.argStr(1)
		} else if len(ctx.args) > 2 {
			return errUnknownSubcommand(ctx.argStr(0), "PUBSUB")
		}
		channels := e.activeChannels(pattern)
		out := make([]resp.Value, len(channels))
		for i, ch := range channels {
			out[i] = resp.MakeBulkString(ch)
		}
		return resp.MakeArray(out)

	case "NUMSUB":
		out := make([]resp.Value, 0, (len(ctx.args)-1)*2)
		for i := 1; i < len(ctx.args); i++ {
			ch := ctx.argStr(i)
			out = append(out,
				resp.MakeBulkString(ch),
				resp.MakeInteger(int64(len(e.subscribers[ch]))))
		}
		return resp.MakeArray(out)

	case "NUMPAT":
		n := 0
		for _, conns := range e.psubscribers {
			if len(conns) > 0 {
				n++
			}
		}
		return resp.MakeInteger(int64(n))
	}
	return errUnknownSubcommand(ctx.argStr(0), "PUBSUB")
}
