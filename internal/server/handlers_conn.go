package server

import (
	"fmt"
	"strings"

	"github.com/eternalApril/moonbeam/internal/resp"
)

func ping(ctx *context) resp.Value {
	// inside a subscribed RESP2 connection PING is answered with a
	// two-element pong push
	if ctx.conn.subscriberCount() > 0 && ctx.conn.proto == 2 {
		msg := ""
		if len(ctx.args) == 1 {
			msg = ctx.argStr(0)
		}
		return resp.MakeArray([]resp.Value{
			resp.MakeBulkString("pong"),
			resp.MakeBulkString(msg),
		})
	}
	switch len(ctx.args) {
	case 0:
		return resp.MakeSimpleString("PONG")
	case 1:
		return resp.MakeBulkBytes(ctx.arg(0))
	}
	return resp.MakeErrorWrongNumberOfArguments("ping")
}

func echo(ctx *context) resp.Value {
	return resp.MakeBulkBytes(ctx.arg(0))
}

func auth(ctx *context) resp.Value {
	pass := ctx.eng.requirePass()
	var given string
	switch len(ctx.args) {
	case 1:
		given = ctx.argStr(0)
	case 2:
		if ctx.argStr(0) != "default" {
			return resp.MakeError(msgWrongPass)
		}
		given = ctx.argStr(1)
	}
	if pass == "" {
		return resp.MakeError(msgAuthNoPass)
	}
	if given != pass {
		return resp.MakeError(msgWrongPass)
	}
	ctx.conn.authenticated = true
	return okReply
}

func hello(ctx *context) resp.Value {
	conn := ctx.conn
	i := 0
	if len(ctx.args) > 0 {
		ver, err := parseIntArg(ctx.argStr(0))
		if err != nil {
			return resp.MakeError("NOPROTO unsupported protocol version")
		}
		if ver != 2 && ver != 3 {
			return resp.MakeError(msgNoProto)
		}
		conn.proto = int(ver)
		i = 1
	}
	for i < len(ctx.args) {
		switch ctx.argUpper(i) {
		case "AUTH":
			if i+2 >= len(ctx.args) {
				return syntaxErrReply
			}
			pass := ctx.eng.requirePass()
			if pass == "" || ctx.argStr(i+1) != "default" || ctx.argStr(i+2) != pass {
				if pass == "" {
					return resp.MakeError(msgAuthNoPass)
				}
				return resp.MakeError(msgWrongPass)
			}
			conn.authenticated = true
			i += 3
		case "SETNAME":
			if i+1 >= len(ctx.args) {
				return syntaxErrReply
			}
			conn.name = ctx.argStr(i + 1)
			i += 2
		default:
			return syntaxErrReply
		}
	}
	if !conn.authenticated {
		return resp.MakeError(msgNoAuth)
	}

	return resp.MakeMap([]resp.Value{
		resp.MakeBulkString("server"), resp.MakeBulkString("redis"),
		resp.MakeBulkString("version"), resp.MakeBulkString("7.4.0"),
		resp.MakeBulkString("proto"), resp.MakeInteger(int64(conn.proto)),
		resp.MakeBulkString("id"), resp.MakeInteger(conn.id),
		resp.MakeBulkString("mode"), resp.MakeBulkString("standalone"),
		resp.MakeBulkString("role"), resp.MakeBulkString("master"),
		resp.MakeBulkString("modules"), resp.MakeArray(nil),
	})
}

func selectCmd(ctx *context) resp.Value {
	n, err := parseIntArg(ctx.argStr(0))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	if n < 0 || int(n) >= len(ctx.eng.dbs) {
		return resp.MakeError(msgDBIndexRange)
	}
	ctx.conn.db = int(n)
	return okReply
}

func swapdb(ctx *context) resp.Value {
	a, err1 := parseIntArg(ctx.argStr(0))
	b, err2 := parseIntArg(ctx.argStr(1))
	if err1 != nil || err2 != nil {
		return resp.MakeError(msgNotInteger)
	}
	if a < 0 || b < 0 || int(a) >= len(ctx.eng.dbs) || int(b) >= len(ctx.eng.dbs) {
		return resp.MakeError(msgDBIndexRange)
	}
	dbs := ctx.eng.dbs
	dbs[a], dbs[b] = dbs[b], dbs[a]
	dbs[a].Index, dbs[b].Index = int(a), int(b)
	return okReply
}

func quit(ctx *context) resp.Value {
	ctx.conn.closed = true
	return okReply
}

// shutdown drops the connection without a reply and stops the engine's
// background work (expiry sweep, append log); the standalone process itself
// keeps running until it receives SIGINT or SIGTERM
func shutdown(ctx *context) resp.Value {
	ctx.conn.closed = true
	ctx.eng.Shutdown()
	return noReply
}

func clientCmd(ctx *context) resp.Value {
	sub := ctx.argUpper(0)
	conn := ctx.conn
	switch sub {
	case "ID":
		return resp.MakeInteger(conn.id)

	case "GETNAME":
		return resp.MakeBulkString(conn.name)

	case "SETNAME":
		if len(ctx.args) != 2 {
			return errUnknownSubcommand(ctx.argStr(0), "CLIENT")
		}
		name := ctx.argStr(1)
		if strings.ContainsAny(name, " \n") {
			return resp.MakeError("ERR Client names cannot contain spaces, newlines or special characters.")
		}
		conn.name = name
		return okReply

	case "LIST":
		var sb strings.Builder
		for _, c := range ctx.eng.clientsSorted() {
			sb.WriteString(clientInfoLine(c))
			sb.WriteByte('\n')
		}
		return resp.MakeBulkString(sb.String())

	case "INFO":
		return resp.MakeBulkString(clientInfoLine(conn))

	case "KILL":
		// accept both the legacy addr form and the filter form; only the
		// ID filter can match an in-process connection
		killed := int64(0)
		for i := 1; i < len(ctx.args)-1; i++ {
			if ctx.argUpper(i) == "ID" {
				id, err := parseIntArg(ctx.argStr(i + 1))
				if err != nil {
					return resp.MakeError(msgNotInteger)
				}
				if victim, ok := ctx.eng.clients[id]; ok {
					victim.closed = true
					killed++
				}
			}
		}
		return resp.MakeInteger(killed)

	case "SETINFO":
		// client libraries report lib-name/lib-ver; accepted and dropped
		if len(ctx.args) != 3 {
			return errUnknownSubcommand(ctx.argStr(0), "CLIENT")
		}
		return okReply

	case "NO-EVICT", "NO-TOUCH":
		if len(ctx.args) != 2 {
			return errUnknownSubcommand(ctx.argStr(0), "CLIENT")
		}
		switch ctx.argUpper(1) {
		case "ON", "OFF":
			return okReply
		}
		return syntaxErrReply

	case "UNPAUSE":
		return okReply

	case "REPLY":
		if len(ctx.args) != 2 {
			return errUnknownSubcommand(ctx.argStr(0), "CLIENT")
		}
		switch ctx.argUpper(1) {
		case "ON":
			conn.reply = replyOn
			return okReply
		case "OFF":
			conn.reply = replyOff
			return noReply
		case "SKIP":
			if conn.reply == replyOn {
				conn.reply = replySkip
			}
			return noReply
		}
		return syntaxErrReply
	}
	return errUnknownSubcommand(ctx.argStr(0), "CLIENT")
}

func clientInfoLine(c *Conn) string {
	return fmt.Sprintf("id=%d addr=127.0.0.1:0 name=%s db=%d resp=%d multi=%d watch=%d",
		c.id, c.name, c.db, c.proto, multiLen(c), len(c.watches))
}

func multiLen(c *Conn) int {
	if c.tx == txNone {
		return -1
	}
	return len(c.queue)
}

func (e *Engine) clientsSorted() []*Conn {
	out := make([]*Conn, 0, len(e.clients))
	var ids []int64
	for id := range e.clients {
		ids = append(ids, id)
	}
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && ids[j] < ids[j-1]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
	for _, id := range ids {
		out = append(out, e.clients[id])
	}
	return out
}
