package store

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// EncodeAll and DecodeAll are safe for concurrent use.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// Dump writes a compressed snapshot of the store to path. The snapshot is
// written to a temporary file next to path and renamed over it, so a failed
// dump leaves any previous snapshot in place.
func (s *Store) Dump(path string) error {
	s.mu.RLock()
	raw := encodeSnapshot(s.data)
	s.mu.RUnlock()

	compressed := encoder.EncodeAll(raw, nil)

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrapf(err, "dump %s", path)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "dump %s: write", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "dump %s: sync", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "dump %s: close", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "dump %s: rename", path)
	}
	return nil
}

// Load replaces the contents of the store with the snapshot at path. A
// missing file leaves the store unchanged.
func (s *Store) Load(path string) error {
	compressed, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}

	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return errors.Wrapf(err, "load %s: decompress", path)
	}

	data, err := decodeSnapshot(raw)
	if err != nil {
		return errors.Wrapf(err, "load %s", path)
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}
