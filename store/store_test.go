package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestStore(t *testing.T) {
	t.Run("set-get-del", func(t *testing.T) {
		s := New()
		s.Set("color", "blue")

		v, ok := s.Get("color")
		assert.True(t, ok)
		assert.Equal(t, "blue", v)

		_, ok = s.Get("missing")
		assert.False(t, ok)

		assert.Equal(t, 1, s.Del("color", "missing"))
		assert.Equal(t, 0, s.Len())
	})

	t.Run("exists-counts-repeats", func(t *testing.T) {
		s := New()
		s.Set("a", "1")
		assert.Equal(t, 2, s.Exists("a", "a", "b"))
	})

	t.Run("keys-sorted-and-filtered", func(t *testing.T) {
		s := New()
		for _, k := range []string{"user:2", "user:1", "session:9"} {
			s.Set(k, "x")
		}
		keys := s.Keys(func(k string) bool { return strings.HasPrefix(k, "user:") })
		assert.Equal(t, []string{"user:1", "user:2"}, keys)
	})

	t.Run("flush", func(t *testing.T) {
		s := New()
		s.Set("a", "1")
		s.Flush()
		assert.Equal(t, 0, s.Len())
	})

	t.Run("update-keeps-value-on-error", func(t *testing.T) {
		s := New()
		s.Set("n", "41")

		v, err := s.Update("n", func(old string, ok bool) (string, error) {
			i, err := strconv.Atoi(old)
			return strconv.Itoa(i + 1), err
		})
		require.NoError(t, err)
		assert.Equal(t, "42", v)

		_, err = s.Update("n", func(string, bool) (string, error) { return "", fmt.Errorf("nope") })
		require.Error(t, err)
		v, _ = s.Get("n")
		assert.Equal(t, "42", v)
	})

	t.Run("concurrent-writers", func(t *testing.T) {
		s := New()
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					s.Set(fmt.Sprintf("k-%d-%d", i, j), "v")
					s.Get(fmt.Sprintf("k-%d-%d", i, j))
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1600, s.Len())
	})
}

func TestDumpLoad(t *testing.T) {
	t.Run("restores-contents", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dump.my_rdb")

		s := New()
		s.Set("color", "blue")
		s.Set("empty", "")
		s.Set("binary", "a\x00b\r\n")
		require.NoError(t, s.Dump(path))

		restored := New()
		restored.Set("stale", "gone")
		require.NoError(t, restored.Load(path))

		assert.Equal(t, []string{"binary", "color", "empty"}, restored.Keys(func(string) bool { return true }))
		v, _ := restored.Get("binary")
		assert.Equal(t, "a\x00b\r\n", v)
	})

	t.Run("overwrites-previous-dump", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dump.my_rdb")

		s := New()
		s.Set("a", "1")
		require.NoError(t, s.Dump(path))
		s.Del("a")
		s.Set("b", "2")
		require.NoError(t, s.Dump(path))

		restored := New()
		require.NoError(t, restored.Load(path))
		assert.Equal(t, []string{"b"}, restored.Keys(func(string) bool { return true }))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temporary files are cleaned up")
	})

	t.Run("missing-file-is-empty", func(t *testing.T) {
		s := New()
		s.Set("keep", "me")
		require.NoError(t, s.Load(filepath.Join(t.TempDir(), "nope")))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("unwritable-destination", func(t *testing.T) {
		s := New()
		err := s.Dump(filepath.Join(t.TempDir(), "no-such-dir", "dump.my_rdb"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dump ")
	})

	t.Run("corrupt-file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dump.my_rdb")
		require.NoError(t, os.WriteFile(path, []byte("not a dump"), 0o644))
		require.Error(t, New().Load(path))
	})
}

func TestDecodeSnapshot(t *testing.T) {
	t.Run("skips-unknown-fields", func(t *testing.T) {
		b := encodeSnapshot(map[string]string{"a": "1"})
		b = protowire.AppendTag(b, 99, protowire.VarintType)
		b = protowire.AppendVarint(b, 7)

		data, err := decodeSnapshot(b)
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"a": "1"}, data)
	})

	t.Run("rejects-unknown-version", func(t *testing.T) {
		var b []byte
		b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
		b = protowire.AppendVarint(b, 2)

		_, err := decodeSnapshot(b)
		assert.ErrorContains(t, err, "unsupported snapshot version 2")
	})

	t.Run("rejects-missing-version", func(t *testing.T) {
		_, err := decodeSnapshot(nil)
		assert.Error(t, err)
	})

	t.Run("rejects-truncated-entry", func(t *testing.T) {
		b := encodeSnapshot(map[string]string{"key": "value"})
		_, err := decodeSnapshot(b[:len(b)-2])
		assert.Error(t, err)
	})
}
