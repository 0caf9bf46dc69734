package server

import (
	"time"

	"github.com/eternalApril/moonbeam/internal/resp"
)

// waitSlot identifies a wait queue: one database, one key
type waitSlot struct {
	db  int
	key string
}

// waiter is a passive record attached to its slots; the writer that
// satisfies the condition signals the channel
type waiter struct {
	conn  *Conn
	ch    chan struct{}
	slots []waitSlot
}

// blockRequest is produced by a blocking handler whose data condition is
// not yet satisfied
type blockRequest struct {
	keys    []string
	timeout time.Duration // 0 means wait forever
	// attempt re-checks the condition under the engine lock; ok=false
	// keeps waiting
	attempt func() (resp.Value, bool)
	// onTimeout is the reply when the deadline passes
	onTimeout resp.Value
}

// maybeBlock arranges for the dispatcher to park the connection. Inside MULTI or
// a script the command must not block: the timeout reply is returned
// immediately.
func (ctx *context) maybeBlock(req *blockRequest) resp.Value {
	if res, ok := req.attempt(); ok {
		return res
	}
	if ctx.noBlock {
		return req.onTimeout
	}
	ctx.block = req
	return resp.Value{}
}

// blockingWait runs with e.mu held and returns with it released. It
// registers the waiter, parks until a write signals one of its keys or the
// deadline passes, and re-checks the condition under the same lock writers
// use.
func (e *Engine) blockingWait(conn *Conn) resp.Value {
	req := conn.pendingBlock
	conn.pendingBlock = nil

	var deadline <-chan time.Time
	var timer *time.Timer
	if req.timeout > 0 {
		timer = time.NewTimer(req.timeout)
		deadline = timer.C
		defer timer.Stop()
	}

	for {
		w := &waiter{conn: conn, ch: make(chan struct{}, 1)}
		for _, key := range req.keys {
			slot := waitSlot{db: conn.db, key: key}
			w.slots = append(w.slots, slot)
			e.waiters[slot] = append(e.waiters[slot], w)
		}
		e.mu.Unlock()

		select {
		case <-w.ch:
			e.mu.Lock()
			e.detachWaiterLocked(w)
			if conn.closed {
				e.mu.Unlock()
				return noReply
			}
			res, ok := req.attempt()
			if ok {
				e.mu.Unlock()
				return res
			}
			// data was taken by someone faster; park again

		case <-deadline:
			e.mu.Lock()
			e.detachWaiterLocked(w)
			// one last chance under the lock before reporting timeout
			if res, ok := req.attempt(); ok {
				e.mu.Unlock()
				return res
			}
			e.mu.Unlock()
			return req.onTimeout
		}
	}
}

// signalKeyLocked wakes waiters parked on (db, key) in FIFO order. Called
// by write handlers after the write is applied, still under the engine lock.
func (e *Engine) signalKeyLocked(db int, key string) {
	slot := waitSlot{db: db, key: key}
	for _, w := range e.waiters[slot] {
		select {
		case w.ch <- struct{}{}:
		default:
		}
	}
}

func (e *Engine) detachWaiterLocked(w *waiter) {
	for _, slot := range w.slots {
		queue := e.waiters[slot]
		for i, other := range queue {
			if other == w {
				e.waiters[slot] = append(queue[:i], queue[i+1:]...)
				break
			}
		}
		if len(e.waiters[slot]) == 0 {
			delete(e.waiters, slot)
		}
	}
}

// removeWaitersLocked drops every waiter owned by a disconnecting client
func (e *Engine) removeWaitersLocked(c *Conn) {
	for slot, queue := range e.waiters {
		kept := queue[:0]
		for _, w := range queue {
			if w.conn != c {
				kept = append(kept, w)
			} else {
				select {
				case w.ch <- struct{}{}:
				default:
				}
			}
		}
		if len(kept) == 0 {
			delete(e.waiters, slot)
		} else {
			e.waiters[slot] = kept
		}
	}
}

// parseTimeout parses the seconds argument of the blocking commands;
// fractional values are allowed, 0 means forever
func parseTimeout(s string) (time.Duration, resp.Value, bool) {
	f, err := parseFloatArg(s)
	if err != nil {
		return 0, resp.MakeError(msgTimeoutNotFlt), false
	}
	if f < 0 {
		return 0, resp.MakeError(msgTimeoutNeg), false
	}
	return time.Duration(f * float64(time.Second)), resp.Value{}, true
}
