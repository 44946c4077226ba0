// Package eeprom abstracts the storage partition the configuration blob
// lives in. The flight controller proper keeps it in flash; here it is a
// file on disk, with an in-memory medium for tests.
package eeprom

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultSize is the partition capacity used when the host configuration
// does not override it.
const DefaultSize = 4096

// ErrTooLarge reports a write that does not fit the partition.
var ErrTooLarge = errors.New("eeprom: content exceeds partition size")

// Medium is one storage partition. Load returning an empty slice means the
// partition was never written; the caller falls back to factory defaults.
type Medium interface {
	// Load returns the partition content.
	Load() ([]byte, error)
	// Store replaces the partition content atomically: after an error the
	// previous content must still read back intact.
	Store(data []byte) error
	// Size is the partition capacity in bytes.
	Size() int
}

// FileMedium keeps the partition in a single file, committed with the
// write-to-temp-then-rename dance so a crash mid-write cannot leave a
// half-written partition behind.
type FileMedium struct {
	path string
	size int
}

func NewFileMedium(path string, size int) *FileMedium {
	if size <= 0 {
		size = DefaultSize
	}
	return &FileMedium{path: path, size: size}
}

func (m *FileMedium) Load() ([]byte, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read eeprom file: %w", err)
	}
	return data, nil
}

func (m *FileMedium) Store(data []byte) error {
	if len(data) > m.size {
		return fmt.Errorf("%w: %d > %d", ErrTooLarge, len(data), m.size)
	}
	if err := os.MkdirAll(filepath.Dir(m.path), 0o750); err != nil {
		return fmt.Errorf("create eeprom dir: %w", err)
	}

	tmpPath := m.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("write temp eeprom: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		return fmt.Errorf("rename temp eeprom: %w", err)
	}
	return nil
}

func (m *FileMedium) Size() int { return m.size }

// MemMedium is an in-memory partition for tests and the dry-run tooling.
type MemMedium struct {
	data []byte
	size int

	// FailNextStore makes the next Store return an error without
	// touching the content.
	FailNextStore bool
}

func NewMemMedium(size int) *MemMedium {
	if size <= 0 {
		size = DefaultSize
	}
	return &MemMedium{size: size}
}

func (m *MemMedium) Load() ([]byte, error) {
	return append([]byte(nil), m.data...), nil
}

func (m *MemMedium) Store(data []byte) error {
	if m.FailNextStore {
		m.FailNextStore = false
		return errors.New("eeprom: injected store failure")
	}
	if len(data) > m.size {
		return fmt.Errorf("%w: %d > %d", ErrTooLarge, len(data), m.size)
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MemMedium) Size() int { return m.size }
