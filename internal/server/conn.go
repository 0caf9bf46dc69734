package server

import (
	"github.com/eternalApril/moonbeam/internal/resp"
)

type txState int

const (
	txNone txState = iota
	txQueuing
	txDirty
)

type replyMode int

const (
	replyOn replyMode = iota
	replyOff
	replySkipNext
	replySkip
)

type watchKey struct {
	db  int
	key string
}

type queuedCommand struct {
	name string
	args [][]byte
}

// Conn is the engine-side state of one client connection. Network I/O stays
// outside; the server loop attaches a push callback for out-of-band frames
// (pub/sub messages, tracking invalidations).
type Conn struct {
	id            int64
	name          string
	db            int
	proto         int
	authenticated bool
	closed        bool

	tx      txState
	queue   []queuedCommand
	watches map[watchKey]uint64

	channels map[string]struct{}
	patterns map[string]struct{}

	reply replyMode

	// pendingBlock is the parked blocking request, set between a handler
	// deciding to wait and the engine's wait loop picking it up
	pendingBlock *blockRequest

	// push delivers an out-of-band frame; nil connections drop them
	push func(v resp.Value)
}

// NewConn registers a fresh connection with the engine
func (e *Engine) NewConn() *Conn {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextClientID++
	c := &Conn{
		id:            e.nextClientID,
		proto:         2,
		authenticated: e.requirePass() == "",
		channels:      make(map[string]struct{}),
		patterns:      make(map[string]struct{}),
	}
	e.clients[c.id] = c
	return c
}

// OnPush installs the out-of-band frame callback
func (c *Conn) OnPush(fn func(v resp.Value)) {
	c.push = fn
}

// ID returns the client id as reported by CLIENT ID
func (c *Conn) ID() int64 {
	return c.id
}

// Closed reports whether a handler asked for the connection to end (QUIT,
// CLIENT KILL, fatal protocol error)
func (c *Conn) Closed() bool {
	return c.closed
}

// Protocol returns the negotiated RESP version
func (c *Conn) Protocol() int {
	return c.proto
}

func (c *Conn) subscriberCount() int {
	return len(c.channels) + len(c.patterns)
}

// resetState drops every piece of per-connection state except identity
func (c *Conn) resetState() {
	c.db = 0
	c.tx = txNone
	c.queue = nil
	c.watches = nil
	c.channels = make(map[string]struct{})
	c.patterns = make(map[string]struct{})
	c.reply = replyOn
	c.proto = 2
	c.name = ""
}

// CloseConn tears the connection out of the engine: subscriptions, waiters and
// transaction state go with it
func (e *Engine) CloseConn(c *Conn) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for ch := range c.channels {
		e.unsubscribeLocked(c, ch)
	}
	for pat := range c.patterns {
		e.punsubscribeLocked(c, pat)
	}
	e.removeWaitersLocked(c)
	delete(e.clients, c.id)
	c.closed = true
}
