package server

import (
	"fmt"

	"github.com/eternalApril/moonbeam/internal/resp"
	"github.com/eternalApril/moonbeam/internal/storage"
	"go.uber.org/zap"
)

// Keyspace-notification classes, mirroring the notify-keyspace-events
// config grammar
type notifyClass uint16

const (
	classKeyspace notifyClass = 1 << iota // K
	classKeyevent                         // E
	classGeneric                          // g
	classString                           // $
	classList                             // l
	classSet                              // s
	classHash                             // h
	classZSet                             // z
	classKeyExpired                       // x
	classEvicted                          // e
	classStream                           // t
	classKeyMiss                          // m
	classNew                              // n
)

const classAll = classGeneric | classString | classList | classSet |
	classHash | classZSet | classKeyExpired | classEvicted | classStream

// parseNotifyFlags parses the notify-keyspace-events string; ok is false on
// an unknown class character
func parseNotifyFlags(s string) (notifyClass, bool) {
	var out notifyClass
	for _, c := range s {
		switch c {
		case 'K':
			out |= classKeyspace
		case 'E':
			out |= classKeyevent
		case 'g':
			out |= classGeneric
		case '$':
			out |= classString
		case 'l':
			out |= classList
		case 's':
			out |= classSet
		case 'h':
			out |= classHash
		case 'z':
			out |= classZSet
		case 'x':
			out |= classKeyExpired
		case 'e':
			out |= classEvicted
		case 't':
			out |= classStream
		case 'm':
			out |= classKeyMiss
		case 'n':
			out |= classNew
		case 'A':
			out |= classAll
		default:
			return 0, false
		}
	}
	return out, true
}

func (e *Engine) notifyFlags() notifyClass {
	flags, _ := parseNotifyFlags(e.configMap["notify-keyspace-events"])
	return flags
}

// notifyLocked emits a keyspace notification if the class is enabled.
// Called under the engine lock by mutating handlers.
func (e *Engine) notifyLocked(db int, class notifyClass, event, key string) {
	flags := e.notifyFlags()
	if flags&class == 0 {
		return
	}
	if flags&classKeyspace != 0 {
		channel := fmt.Sprintf("__keyspace@%d__:%s", db, key)
		e.publishLocked(channel, []byte(event))
	}
	if flags&classKeyevent != 0 {
		channel := fmt.Sprintf("__keyevent@%d__:%s", db, event)
		e.publishLocked(channel, []byte(key))
	}
}

func (ctx *context) notify(class notifyClass, event, key string) {
	ctx.eng.notifyLocked(ctx.conn.db, class, event, key)
}

// signalWrite performs the post-mutation duties shared by every write:
// wake blocked clients, emit the event
func (ctx *context) signalWrite(class notifyClass, event, key string) {
	ctx.eng.signalKeyLocked(ctx.conn.db, key)
	ctx.notify(class, event, key)
}

// publishLocked fans one message out to exact-channel and pattern
// subscribers; returns the receiver count
func (e *Engine) publishLocked(channel string, payload []byte) int64 {
	count := int64(0)

	for _, conn := range e.subscribers[channel] {
		msg := resp.MakePush([]resp.Value{
			resp.MakeBulkString("message"),
			resp.MakeBulkString(channel),
			resp.MakeBulkBytes(payload),
		})
		e.deliver(conn, msg)
		count++
	}

	for pattern, conns := range e.psubscribers {
		if !storage.GlobMatch(pattern, channel) {
			continue
		}
		for _, conn := range conns {
			msg := resp.MakePush([]resp.Value{
				resp.MakeBulkString("pmessage"),
				resp.MakeBulkString(pattern),
				resp.MakeBulkString(channel),
				resp.MakeBulkBytes(payload),
			})
			e.deliver(conn, msg)
			count++
		}
	}
	return count
}

// deliver hands an out-of-band frame to a subscriber. Errors in delivery
// never propagate to the publisher.
func (e *Engine) deliver(conn *Conn, msg resp.Value) {
	if conn.push == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("dropped pub/sub delivery", zap.Any("panic", r))
		}
	}()
	conn.push(msg)
}

func (e *Engine) subscribeLocked(c *Conn, channel string) {
	if e.subscribers[channel] == nil {
		e.subscribers[channel] = make(map[int64]*Conn)
	}
	e.subscribers[channel][c.id] = c
	c.channels[channel] = struct{}{}
}

func (e *Engine) unsubscribeLocked(c *Conn, channel string) {
	if conns, ok := e.subscribers[channel]; ok {
		delete(conns, c.id)
		if len(conns) == 0 {
			delete(e.subscribers, channel)
		}
	}
	delete(c.channels, channel)
}

func (e *Engine) psubscribeLocked(c *Conn, pattern string) {
	if e.psubscribers[pattern] == nil {
		e.psubscribers[pattern] = make(map[int64]*Conn)
	}
	e.psubscribers[pattern][c.id] = c
	c.patterns[pattern] = struct{}{}
}

func (e *Engine) punsubscribeLocked(c *Conn, pattern string) {
	if conns, ok := e.psubscribers[pattern]; ok {
		delete(conns, c.id)
		if len(conns) == 0 {
			delete(e.psubscribers, pattern)
		}
	}
	delete(c.patterns, pattern)
}

// activeChannels lists channels with at least one subscriber, optionally
// filtered by a glob pattern
func (e *Engine) activeChannels(pattern string) []string {
	var out []string
	for ch, conns := range e.subscribers {
		if len(conns) == 0 {
			continue
		}
		if pattern != "" && !storage.GlobMatch(pattern, ch) {
			continue
		}
		out = append(out, ch)
	}
	return out
}
