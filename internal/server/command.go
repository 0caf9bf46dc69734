package server

import (
	"strings"
	"time"

	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
)

type cmdFlags uint16

const (
	flagWrite cmdFlags = 1 << iota
	flagReadonly
	flagAdmin
	flagPubsub
	flagNoScript
	flagBlocking
	flagFast
	flagLoading
	flagStale
)

// command is one dispatch-table descriptor. Arity follows the wire
// convention: it counts the command name itself, and a negative value means
// "at least that many".
type command struct {
	name     string
	arity    int
	flags    cmdFlags
	firstKey int
	lastKey  int
	keyStep  int
	handler  func(ctx *context) resp.Value
}

func (c *command) checkArity(argc int) bool {
	if c.arity >= 0 {
		return argc == c.arity
	}
	return argc >= -c.arity
}

// context carries one command invocation. args excludes the command name;
// now is the single authoritative clock read for the invocation.
type context struct {
	eng  *Engine
	conn *Conn
	name string
	args [][]byte
	now  time.Time

	// set by a blocking handler whose condition is not yet satisfied
	block *blockRequest
	// scripted calls forbid blocking
	noBlock bool
}

func (ctx *context) db() *storage.DB {
	return ctx.eng.dbs[ctx.conn.db]
}

func (ctx *context) arg(i int) []byte {
	return ctx.args[i]
}

func (ctx *context) argStr(i int) string {
	return string(ctx.args[i])
}

// argUpper canonicalizes a flag token
func (ctx *context) argUpper(i int) string {
	return strings.ToUpper(string(ctx.args[i]))
}

func (ctx *context) nowMs() int64 {
	return ctx.now.UnixMilli()
}

// wrongType is the single type-mismatch predicate: nil entity passes
func wrongType(ent *storage.Entity, want storage.DataType) bool {
	return ent != nil && ent.Type != want
}

// lookupTyped resolves key to an entity of the wanted kind. The bool is
// false on a type mismatch, in which case the caller replies msgWrongType.
func (ctx *context) lookupTyped(key string, want storage.DataType) (*storage.Entity, bool) {
	ent := ctx.db().Lookup(key)
	if wrongType(ent, want) {
		return nil, false
	}
	return ent, true
}
