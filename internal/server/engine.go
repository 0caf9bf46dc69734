package server

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/eternalApril/moonbeam/internal/config"
	"github.com/eternalApril/moonbeam/internal/persistence"
	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
	"go.uber.org/zap"
)

// noReply is returned when the connection must not receive a frame
// (suppressed replies, queued pub/sub context replies handled elsewhere)
var noReply = resp.Value{}

// ScriptEvaluator is the opaque scripting sandbox. Call reenters the
// dispatcher with AUTH bypassed and blocking forbidden.
type ScriptEvaluator interface {
	Eval(script string, keys [][]byte, args [][]byte, call func(cmdArgs [][]byte) resp.Value) (resp.Value, error)
}

// Engine owns the server state: the numbered keyspaces, the command
// registry, pub/sub registries, blocked-client records, and the runtime
// configuration. All command execution is serialized behind mu — the
// single-logical-writer model clients rely on for command atomicity.
// Multiple engines can coexist in one process; there is no package state.
type Engine struct {
	mu       sync.Mutex
	commands map[string]*command
	dbs      []*storage.DB
	cfg      *config.Config
	logger   *zap.Logger

	clock   func() time.Time
	rng     *rand.Rand
	version uint64 // global write counter for WATCH

	configMap map[string]string
	scripts   map[string]string
	evaluator ScriptEvaluator

	snapshotter persistence.Snapshotter
	appendLog   *persistence.Log
	lastSave    int64

	subscribers  map[string]map[int64]*Conn
	psubscribers map[string]map[int64]*Conn

	waiters map[waitSlot][]*waiter

	clients      map[int64]*Conn
	nextClientID int64

	stopGC   chan struct{}
	stopOnce sync.Once
}

// NewEngine initializes the engine, registers the command table, and if
// enabled in the config starts background cleanup of outdated keys
func NewEngine(cfg *config.Config, logger *zap.Logger) (*Engine, error) {
	e := &Engine{
		commands:     make(map[string]*command),
		cfg:          cfg,
		logger:       logger,
		clock:        time.Now,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
		configMap:    config.RuntimeDefaults(),
		scripts:      make(map[string]string),
		subscribers:  make(map[string]map[int64]*Conn),
		psubscribers: make(map[string]map[int64]*Conn),
		waiters:      make(map[waitSlot][]*waiter),
		clients:      make(map[int64]*Conn),
		stopGC:       make(chan struct{}),
	}

	n := cfg.Databases
	if n <= 0 {
		n = 16
	}
	e.dbs = make([]*storage.DB, n)
	for i := range e.dbs {
		e.dbs[i] = storage.NewDB(i, e.readClock, &e.version)
		e.dbs[i].OnExpired = e.onKeyExpired
	}
	e.lastSave = e.clock().Unix()

	e.registerCommands()

	if cfg.Persistence.AppendLog.Enabled {
		log, err := persistence.NewLog(cfg.Persistence.AppendLog.Filename, cfg.Persistence.AppendLog.Fsync, logger)
		if err != nil {
			return nil, err
		}
		e.appendLog = log
		e.replayAppendLog()
	}

	if cfg.GC.Enabled {
		go e.startGCLoop()
	}

	return e, nil
}

func (e *Engine) readClock() time.Time {
	return e.clock()
}

// SetClock injects a deterministic clock for tests
func (e *Engine) SetClock(fn func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = fn
}

// Seed reseeds the shared RNG used by the sampling commands
func (e *Engine) Seed(seed int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng = rand.New(rand.NewSource(seed))
}

// SetSnapshotter installs the persistence hook behind SAVE/BGSAVE/DEBUG RELOAD
func (e *Engine) SetSnapshotter(s persistence.Snapshotter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshotter = s
}

// SetEvaluator installs the scripting sandbox behind EVAL/EVALSHA
func (e *Engine) SetEvaluator(ev ScriptEvaluator) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.evaluator = ev
}

// register adds a command to the dispatch table
func (e *Engine) register(cmd *command) {
	e.commands[strings.ToUpper(cmd.name)] = cmd
}

func (e *Engine) requirePass() string {
	return e.configMap["requirepass"]
}

// Dispatch validates and executes one request on behalf of conn and
// returns the reply frame. A zero Value means "send nothing".
func (e *Engine) Dispatch(conn *Conn, args [][]byte) resp.Value {
	if len(args) == 0 {
		return noReply
	}
	name := strings.ToUpper(string(args[0]))
	rest := args[1:]

	e.mu.Lock()
	res := e.dispatchLocked(conn, name, rest)

	// a blocking handler parked itself; leave the lock to the wait loop
	if res.Type == 0 && conn.pendingBlock != nil {
		return e.blockingWait(conn)
	}
	e.mu.Unlock()

	return e.filterReply(conn, name, res)
}

// filterReply applies CLIENT REPLY suppression
func (e *Engine) filterReply(conn *Conn, name string, res resp.Value) resp.Value {
	switch conn.reply {
	case replyOff:
		return noReply
	case replySkip:
		conn.reply = replySkipNext
		return res
	case replySkipNext:
		conn.reply = replyOn
		return noReply
	}
	return res
}

func (e *Engine) dispatchLocked(conn *Conn, name string, args [][]byte) resp.Value {
	if e.logger.Core().Enabled(zap.DebugLevel) {
		e.logger.Debug("executing command",
			zap.String("cmd", name),
			zap.Int("args_count", len(args)),
		)
	}

	cmd, known := e.commands[name]

	// authentication gate
	if !conn.authenticated {
		switch name {
		case "AUTH", "HELLO", "QUIT", "RESET":
		default:
			return resp.MakeError(msgNoAuth)
		}
	}

	// transaction queuing: most commands are stashed, not executed
	if conn.tx != txNone {
		switch name {
		case "EXEC", "DISCARD", "MULTI", "WATCH", "UNWATCH", "RESET", "QUIT":
		default:
			if !known {
				conn.tx = txDirty
				return errUnknownCommand(name)
			}
			if !cmd.checkArity(len(args) + 1) {
				conn.tx = txDirty
				return resp.MakeErrorWrongNumberOfArguments(strings.ToLower(name))
			}
			conn.queue = append(conn.queue, queuedCommand{name: name, args: args})
			return resp.MakeSimpleString("QUEUED")
		}
	}

	if !known {
		return errUnknownCommand(name)
	}
	if !cmd.checkArity(len(args) + 1) {
		return resp.MakeErrorWrongNumberOfArguments(strings.ToLower(name))
	}

	// subscribe-mode gate (RESP2 only; RESP3 clients may interleave)
	if conn.subscriberCount() > 0 && conn.proto == 2 {
		switch name {
		case "SUBSCRIBE", "UNSUBSCRIBE", "PSUBSCRIBE", "PUNSUBSCRIBE", "PING", "QUIT", "RESET":
		default:
			return errSubscribeContext(name)
		}
	}

	return e.callLocked(conn, cmd, name, args, false)
}

// callLocked runs the handler and performs post-write bookkeeping
func (e *Engine) callLocked(conn *Conn, cmd *command, name string, args [][]byte, scripted bool) resp.Value {
	ctx := &context{
		eng:     e,
		conn:    conn,
		name:    name,
		args:    args,
		now:     e.clock(),
		noBlock: scripted,
	}

	res := ctx.run(cmd)

	if ctx.block != nil && !res.IsError() {
		conn.pendingBlock = ctx.block
		return resp.Value{}
	}

	if e.appendLog != nil && !res.IsError() && cmd.flags&flagWrite != 0 {
		payload, err := resp.SerializeCommand(name, args)
		if err != nil {
			e.logger.Error("failed to serialize command for append log", zap.Error(err))
		} else {
			e.appendLog.Write(payload)
		}
	}

	return res
}

func (ctx *context) run(cmd *command) resp.Value {
	return cmd.handler(ctx)
}

// scriptedCallLocked is the reentry point handed to the script evaluator: AUTH is
// bypassed, blocking is forbidden, and the caller's database selection is
// in effect. It must be called while the evaluator runs inside EVAL (the
// engine lock is already held).
func (e *Engine) scriptedCallLocked(conn *Conn, args [][]byte) resp.Value {
	if len(args) == 0 {
		return resp.MakeError("ERR invalid command")
	}
	name := strings.ToUpper(string(args[0]))
	cmd, ok := e.commands[name]
	if !ok {
		return errUnknownCommand(name)
	}
	if cmd.flags&flagNoScript != 0 {
		return resp.MakeError("ERR This Redis command is not allowed from script")
	}
	if !cmd.checkArity(len(args)) {
		return resp.MakeErrorWrongNumberOfArguments(strings.ToLower(name))
	}
	return e.callLocked(conn, cmd, name, args[1:], true)
}

// replayAppendLog re-executes logged write commands against a throwaway
// connection during startup
func (e *Engine) replayAppendLog() {
	cmds, err := e.appendLog.Load()
	if err != nil {
		e.logger.Error("failed to load append log", zap.Error(err))
		return
	}
	e.logger.Info("restoring append log", zap.Int("commands", len(cmds)))

	conn := &Conn{proto: 2, authenticated: true}
	e.mu.Lock()
	for _, args := range cmds {
		if len(args) == 0 {
			continue
		}
		name := strings.ToUpper(string(args[0]))
		if cmd, ok := e.commands[name]; ok {
			ctx := &context{eng: e, conn: conn, name: name, args: args[1:], now: e.clock(), noBlock: true}
			ctx.run(cmd)
		}
	}
	e.mu.Unlock()
	e.logger.Info("append log restore finished")
}

// startGCLoop triggers the active expiration mechanism
func (e *Engine) startGCLoop() {
	ticker := time.NewTicker(e.cfg.GC.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for {
				ratio := e.sweepExpired()
				if ratio > 0 && e.logger.Core().Enabled(zap.DebugLevel) {
					e.logger.Debug("gc deleted expired keys", zap.Float64("expired_ratio", ratio))
				}
				if ratio < e.cfg.GC.MatchThreshold {
					break
				}
			}
		case <-e.stopGC:
			e.logger.Info("GC stopped")
			return
		}
	}
}

func (e *Engine) sweepExpired() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := 0.0
	for _, db := range e.dbs {
		total += db.DeleteExpiredSample(e.cfg.GC.SamplesPerCheck)
	}
	return total / float64(len(e.dbs))
}

// onKeyExpired fires the keyspace notification for lazily expired keys
func (e *Engine) onKeyExpired(db int, key string) {
	e.notifyLocked(db, classKeyExpired, "expired", key)
}

// Shutdown shuts down the engine and its background services correctly
func (e *Engine) Shutdown() {
	e.stopOnce.Do(func() {
		if e.cfg.GC.Enabled {
			close(e.stopGC)
		}
		if e.appendLog != nil {
			e.appendLog.Close() //nolint:errcheck
		}
	})
}
