package server

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/eternalApril/moonbeam/internal/config"
	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
	"go.uber.org/zap"
)

func commandCmd(ctx *context) resp.Value {
	if len(ctx.args) > 0 {
		switch ctx.argUpper(0) {
		case "COUNT":
			return resp.MakeInteger(int64(len(ctx.eng.commands)))
		case "DOCS", "INFO":
			return resp.MakeArray(nil)
		default:
			return errUnknownSubcommand(ctx.argStr(0), "COMMAND")
		}
	}
	out := make([]resp.Value, 0, len(ctx.eng.commands))
	for name, cmd := range ctx.eng.commands {
		out = append(out, resp.MakeArray([]resp.Value{
			resp.MakeBulkString(strings.ToLower(name)),
			resp.MakeInteger(int64(cmd.arity)),
			resp.MakeArray(nil),
			resp.MakeInteger(int64(cmd.firstKey)),
			resp.MakeInteger(int64(cmd.lastKey)),
			resp.MakeInteger(int64(cmd.keyStep)),
		}))
	}
	return resp.MakeArray(out)
}

func configCmd(ctx *context) resp.Value {
	e := ctx.eng
	switch ctx.argUpper(0) {
	case "GET":
		if len(ctx.args) < 2 {
			return errUnknownSubcommand(ctx.argStr(0), "CONFIG")
		}
		var names []string
		for name := range e.configMap {
			for i := 1; i < len(ctx.args); i++ {
				if storage.GlobMatch(strings.ToLower(ctx.argStr(i)), name) {
					names = append(names, name)
					break
				}
			}
		}
		sort.Strings(names)
		out := make([]resp.Value, 0, len(names)*2)
		for _, name := range names {
			out = append(out, resp.MakeBulkString(name), resp.MakeBulkString(e.configMap[name]))
		}
		return resp.MakeMap(out)

	case "SET":
		if len(ctx.args) < 3 || len(ctx.args)%2 != 1 {
			return errUnknownSubcommand(ctx.argStr(0), "CONFIG")
		}
		// validate every pair before applying any
		for i := 1; i < len(ctx.args); i += 2 {
			name := strings.ToLower(ctx.argStr(i))
			value := ctx.argStr(i + 1)
			if _, known := e.configMap[name]; !known {
				return resp.MakeError(fmt.Sprintf("ERR Unknown option or number of arguments for CONFIG SET - '%s'", name))
			}
			if res := validateConfigValue(name, value); res.IsError() {
				return res
			}
		}
		for i := 1; i < len(ctx.args); i += 2 {
			e.configMap[strings.ToLower(ctx.argStr(i))] = ctx.argStr(i + 1)
		}
		return okReply

	case "RESETSTAT", "REWRITE":
		return okReply
	}
	return errUnknownSubcommand(ctx.argStr(0), "CONFIG")
}

func validateConfigValue(name, value string) resp.Value {
	switch name {
	case "maxmemory-policy":
		for _, p := range config.MaxmemoryPolicies {
			if value == p {
				return resp.Value{}
			}
		}
		return resp.MakeError("ERR CONFIG SET failed - argument couldn't be parsed into an integer")
	case "notify-keyspace-events":
		if _, ok := parseNotifyFlags(value); !ok {
			return resp.MakeError("ERR CONFIG SET failed - Invalid event class character. Some possible classes are: 'g$lshzxeKE'")
		}
	}
	return resp.Value{}
}

func info(ctx *context) resp.Value {
	e := ctx.eng
	var sb strings.Builder
	sb.WriteString("# Server\r\n")
	sb.WriteString("redis_version:7.4.0\r\n")
	sb.WriteString("redis_mode:standalone\r\n")
	sb.WriteString("run_id:moonbeam\r\n")
	sb.WriteString("\r\n# Clients\r\n")
	fmt.Fprintf(&sb, "connected_clients:%d\r\n", len(e.clients))
	sb.WriteString("\r\n# Replication\r\n")
	sb.WriteString("role:master\r\n")
	sb.WriteString("connected_slaves:0\r\n")
	sb.WriteString("\r\n# Persistence\r\n")
	fmt.Fprintf(&sb, "rdb_last_save_time:%d\r\n", e.lastSave)
	sb.WriteString("\r\n# Keyspace\r\n")
	for _, db := range e.dbs {
		if n := db.Size(); n > 0 {
			fmt.Fprintf(&sb, "db%d:keys=%d,expires=0,avg_ttl=0\r\n", db.Index, n)
		}
	}
	return resp.MakeBulkString(sb.String())
}

func timeCmd(ctx *context) resp.Value {
	micros := ctx.now.UnixMicro()
	return resp.MakeArray([]resp.Value{
		resp.MakeBulkString(fmt.Sprintf("%d", micros/1_000_000)),
		resp.MakeBulkString(fmt.Sprintf("%d", micros%1_000_000)),
	})
}

func lastsave(ctx *context) resp.Value {
	return resp.MakeInteger(ctx.eng.lastSave)
}

func save(ctx *context) resp.Value {
	if res := ctx.eng.saveSnapshotLocked(); res.IsError() {
		return res
	}
	return okReply
}

func bgsave(ctx *context) resp.Value {
	// the engine lock serializes everything anyway; the save happens
	// inline and only the reply shape differs
	if res := ctx.eng.saveSnapshotLocked(); res.IsError() {
		return res
	}
	return resp.MakeSimpleString("Background saving started")
}

func bgrewriteaof(ctx *context) resp.Value {
	return resp.MakeSimpleString("Background append only file rewriting started")
}

func (e *Engine) saveSnapshotLocked() resp.Value {
	if e.snapshotter == nil {
		return resp.MakeError("ERR snapshotting is not configured")
	}
	data, err := e.encodeState()
	if err != nil {
		e.logger.Error("snapshot encode failed", zap.Error(err))
		return resp.MakeError("ERR " + err.Error())
	}
	if err := e.snapshotter.Save(data); err != nil {
		e.logger.Error("snapshot save failed", zap.Error(err))
		return resp.MakeError("ERR " + err.Error())
	}
	e.lastSave = e.clock().Unix()
	return resp.Value{}
}

func debugCmd(ctx *context) resp.Value {
	switch ctx.argUpper(0) {
	case "RELOAD":
		e := ctx.eng
		if res := e.saveSnapshotLocked(); res.IsError() {
			return res
		}
		data, err := e.snapshotter.Load()
		if err != nil {
			return resp.MakeError("ERR " + err.Error())
		}
		if err := e.decodeState(data); err != nil {
			return resp.MakeError("ERR " + err.Error())
		}
		return okReply

	case "JMAP", "SET-ACTIVE-EXPIRE", "CHANGE-REPL-ID", "QUICKLIST-PACKED-THRESHOLD", "STRINGMATCH-LEN":
		return okReply

	case "SLEEP":
		if len(ctx.args) != 2 {
			return errUnknownSubcommand(ctx.argStr(0), "DEBUG")
		}
		f, err := parseFloatArg(ctx.argStr(1))
		if err != nil || f < 0 {
			return resp.MakeError(msgNotFloat)
		}
		time.Sleep(time.Duration(f * float64(time.Second)))
		return okReply

	case "OBJECT":
		if len(ctx.args) != 2 {
			return errUnknownSubcommand(ctx.argStr(0), "DEBUG")
		}
		ent := ctx.db().Lookup(ctx.argStr(1))
		if ent == nil {
			return resp.MakeError(msgNoSuchKey)
		}
		return resp.MakeSimpleString(fmt.Sprintf(
			"Value at:0 refcount:1 encoding:%s serializedlength:0", ctx.objectEncoding(ent)))
	}
	return errUnknownSubcommand(ctx.argStr(0), "DEBUG")
}

func wait(ctx *context) resp.Value {
	// single-master stub: no replicas ever acknowledge
	if _, err := parseIntArg(ctx.argStr(0)); err != nil {
		return resp.MakeError(msgNotInteger)
	}
	if _, err := parseIntArg(ctx.argStr(1)); err != nil {
		return resp.MakeError(msgTimeoutNotFlt)
	}
	return resp.MakeInteger(0)
}

func replicaof(ctx *context) resp.Value {
	if strings.EqualFold(ctx.argStr(0), "no") && strings.EqualFold(ctx.argStr(1), "one") {
		return okReply
	}
	// acknowledged but never acted on: replication is a stub
	return okReply
}

func scriptSha(body string) string {
	sum := sha1.Sum([]byte(body))
	return hex.EncodeToString(sum[:])
}

func scriptCmd(ctx *context) resp.Value {
	e := ctx.eng
	switch ctx.argUpper(0) {
	case "LOAD":
		if len(ctx.args) != 2 {
			return errUnknownSubcommand(ctx.argStr(0), "SCRIPT")
		}
		body := ctx.argStr(1)
		sha := scriptSha(body)
		e.scripts[sha] = body
		return resp.MakeBulkString(sha)

	case "EXISTS":
		out := make([]resp.Value, len(ctx.args)-1)
		for i := 1; i < len(ctx.args); i++ {
			if _, ok := e.scripts[strings.ToLower(ctx.argStr(i))]; ok {
				out[i-1] = resp.MakeInteger(1)
			} else {
				out[i-1] = resp.MakeInteger(0)
			}
		}
		return resp.MakeArray(out)

	case "FLUSH":
		e.scripts = make(map[string]string)
		return okReply
	}
	return errUnknownSubcommand(ctx.argStr(0), "SCRIPT")
}

func evalGeneric(ctx *context, bySha bool) resp.Value {
	e := ctx.eng
	body := ctx.argStr(0)
	if bySha {
		stored, ok := e.scripts[strings.ToLower(body)]
		if !ok {
			return resp.MakeError(msgNoScript)
		}
		body = stored
	} else {
		e.scripts[scriptSha(body)] = body
	}

	numKeys, err := parseIntArg(ctx.argStr(1))
	if err != nil {
		return resp.MakeError(msgNotInteger)
	}
	if numKeys < 0 {
		return resp.MakeError("ERR Number of keys can't be negative")
	}
	if int(numKeys) > len(ctx.args)-2 {
		return resp.MakeError("ERR Number of keys can't be greater than number of args")
	}
	keys := ctx.args[2 : 2+numKeys]
	argv := ctx.args[2+numKeys:]

	if e.evaluator == nil {
		return resp.MakeError("ERR Lua scripting is not enabled in this instance")
	}

	res, evalErr := e.evaluator.Eval(body, keys, argv, func(cmdArgs [][]byte) resp.Value {
		return e.scriptedCallLocked(ctx.conn, cmdArgs)
	})
	if evalErr != nil {
		return resp.MakeError("ERR " + evalErr.Error())
	}
	return res
}

func eval(ctx *context) resp.Value {
	return evalGeneric(ctx, false)
}

func evalsha(ctx *context) resp.Value {
	return evalGeneric(ctx, true)
}
