package persistence

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Snapshotter is the injected persistence hook behind SAVE, BGSAVE and
// DEBUG RELOAD. The payload is an opaque serialization of the entire
// server state produced by the engine.
type Snapshotter interface {
	Save(data []byte) error
	Load() ([]byte, error)
}

var ErrNoSnapshot = errors.New("no snapshot present")

const fileHeader = "MOONBEAM1"

// FileSnapshotter writes the snapshot atomically to a single file
type FileSnapshotter struct {
	filename string
	logger   *zap.Logger
}

func NewFileSnapshotter(filename string, logger *zap.Logger) *FileSnapshotter {
	return &FileSnapshotter{
		filename: filename,
		logger:   logger,
	}
}

// Save performs an atomic save operation
func (f *FileSnapshotter) Save(data []byte) error {
	start := time.Now()
	tmpFile := f.filename + ".tmp"

	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}
	defer file.Close()
	writer := bufio.NewWriterSize(file, 4*1024*1024)

	if _, err := writer.WriteString(fileHeader); err != nil {
		return err
	}
	if _, err := writer.Write(data); err != nil {
		return err
	}
	if err := writer.Flush(); err != nil {
		return err
	}
	if err := file.Sync(); err != nil {
		return err
	}
	file.Close()

	if err := os.Rename(tmpFile, f.filename); err != nil {
		return err
	}

	f.logger.Info("snapshot saved",
		zap.String("file", f.filename),
		zap.Int("bytes", len(data)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (f *FileSnapshotter) Load() ([]byte, error) {
	file, err := os.Open(f.filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	defer file.Close()

	reader := bufio.NewReader(file)
	header := make([]byte, len(fileHeader))
	if _, err := io.ReadFull(reader, header); err != nil {
		return nil, err
	}
	if string(header) != fileHeader {
		f.logger.Warn("invalid snapshot header", zap.String("header", string(header)))
		return nil, ErrNoSnapshot
	}
	return io.ReadAll(reader)
}

// MemorySnapshotter keeps the blob in memory; it backs DEBUG RELOAD when no
// file snapshotter is configured and the in-process test servers
type MemorySnapshotter struct {
	mu   sync.Mutex
	data []byte
}

func NewMemorySnapshotter() *MemorySnapshotter {
	return &MemorySnapshotter{}
}

func (m *MemorySnapshotter) Save(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemorySnapshotter) Load() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, ErrNoSnapshot
	}
	return append([]byte(nil), m.data...), nil
}
