package persistence

import (
	"bufio"
	"io"
	"os"
	"sync"
	"time"

	"github.com/eternalApril/moonbeam/internal/resp"
	"go.uber.org/zap"
)

type fsyncStrategy int

const (
	fsyncAlways fsyncStrategy = iota + 1
	fsyncEverySec
	fsyncNo
)

// Log is the append-only command log: every accepted write command is
// serialized in wire format and replayed on startup
type Log struct {
	file     *os.File
	writer   *bufio.Writer
	filename string
	strategy fsyncStrategy

	commandsChan chan []byte

	stopChan chan struct{}
	wg       sync.WaitGroup
	logger   *zap.Logger
}

// NewLog construct Log structure
func NewLog(filename string, strategyStr string, logger *zap.Logger) (*Log, error) {
	strategy := parseStrategy(strategyStr)

	// open file in Append mode, Create if not exists, Read/Write
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	l := &Log{
		file:         f,
		writer:       bufio.NewWriter(f), // default 4KB buffer
		filename:     filename,
		strategy:     strategy,
		commandsChan: make(chan []byte, 10000), // buffer for burst writes
		stopChan:     make(chan struct{}),
		logger:       logger,
	}

	// background disk writer
	l.wg.Add(1)
	go l.listen()

	return l, nil
}

// Write send command in channel
func (l *Log) Write(payload []byte) {
	// if channel is full, this WILL block, providing backpressure
	l.commandsChan <- payload
}

func (l *Log) listen() {
	defer l.wg.Done()

	var ticker = time.NewTicker(1 * time.Second)

	switch l.strategy {
	case fsyncAlways:
		ticker.Stop()
	case fsyncNo:
		ticker.Stop()
	default:
		defer ticker.Stop()
	}

	for {
		select {
		case p, ok := <-l.commandsChan:
			if !ok {
				return
			}
			if _, err := l.writer.Write(p); err != nil {
				l.logger.Error("append log write error", zap.Error(err))
				continue
			}

			if l.strategy == fsyncAlways {
				l.flush()
				l.file.Sync() //nolint:errcheck
			}

		case <-ticker.C:
			if l.strategy == fsyncEverySec {
				l.flush()
				l.file.Sync() //nolint:errcheck
			}

		case <-l.stopChan:
			l.flush()
			l.file.Sync() //nolint:errcheck
			return
		}
	}
}

func (l *Log) flush() {
	if err := l.writer.Flush(); err != nil {
		l.logger.Error("append log flush error", zap.Error(err))
	}
}

// Load reads the log file and returns the decoded commands to be replayed
func (l *Log) Load() ([][][]byte, error) {
	file, err := os.Open(l.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // fresh start
		}
		return nil, err
	}
	defer file.Close() //nolint:errcheck

	reader := resp.NewDecoder(file)
	var commands [][][]byte

	for {
		args, err := reader.ReadCommand()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		commands = append(commands, args)
	}

	return commands, nil
}

// Close the append log
func (l *Log) Close() error {
	close(l.stopChan)

	l.wg.Wait() // wait for background routine to finish last flush
	return l.file.Close()
}

func parseStrategy(s string) fsyncStrategy {
	switch s {
	case "always":
		return fsyncAlways
	case "no":
		return fsyncNo
	default:
		return fsyncEverySec
	}
}
