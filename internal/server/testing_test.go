package server

import (
	"time"

	"github.com/eternalApril/moonbeam/internal/config"
	"github.com/eternalApril/moonbeam/internal/logger"
	"github.com/eternalApril/moonbeam/internal/persistence"
	"github.com/eternalApril/moonbeam/internal/resp"
)

// setupEngine creates a fresh engine with a clean keyspace for each test
func setupEngine() *Engine {
	cfg := config.Default()
	eng, _ := NewEngine(cfg, logger.New("error", "console"))
	eng.SetSnapshotter(persistence.NewMemorySnapshotter())
	eng.Seed(42)
	return eng
}

// run dispatches one command on behalf of conn
func run(e *Engine, conn *Conn, args ...string) resp.Value {
	raw := make([][]byte, len(args))
	for i, a := range args {
		raw[i] = []byte(a)
	}
	return e.Dispatch(conn, raw)
}

// fixedClock pins the engine's clock and returns a function to advance it
func fixedClock(e *Engine) func(d time.Duration) {
	now := time.UnixMilli(1_700_000_000_000)
	e.SetClock(func() time.Time { return now })
	return func(d time.Duration) {
		now = now.Add(d)
	}
}

// collectPushes attaches an out-of-band frame recorder to the connection
func collectPushes(conn *Conn) *[]resp.Value {
	var frames []resp.Value
	conn.OnPush(func(v resp.Value) {
		frames = append(frames, v)
	})
	return &frames
}
