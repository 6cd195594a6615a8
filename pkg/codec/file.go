package codec

import (
	"bytes"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/halfmoss/ngram/pkg/markov"
)

// SaveFile writes the snapshot to path using the codec selected by the
// path's extension. The file is replaced atomically, so a crash mid-write
// never leaves a truncated chain file behind.
func SaveFile[T comparable](path string, snap *markov.Snapshot[T]) error {
	c, err := ForPath[T](path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := c.Encode(&buf, snap); err != nil {
		return fmt.Errorf("codec: encoding %s: %w", path, err)
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("codec: writing %s: %w", path, err)
	}
	return nil
}

// LoadFile reads a snapshot from path using the codec selected by the path's
// extension.
func LoadFile[T comparable](path string) (*markov.Snapshot[T], error) {
	c, err := ForPath[T](path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	snap, err := c.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return snap, nil
}
