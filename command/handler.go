// Package command implements the request processor: it decodes RESP or
// inline requests, runs them against a Store and encodes RESP replies.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Store is the subset of the key-value store the commands operate on.
type Store interface {
	Set(key, value string)
	Get(key string) (string, bool)
	Del(keys ...string) int
	Exists(keys ...string) int
	Keys(match func(key string) bool) []string
	Len() int
	Flush()
	Update(key string, fn func(old string, ok bool) (string, error)) (string, error)
}

type Option func(*Handler)

func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

type Handler struct {
	store  Store
	logger *zap.Logger
}

func NewHandler(store Store, opts ...Option) *Handler {
	h := &Handler{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Process runs every complete command in req in order and returns their
// concatenated replies. Parsing stops at the first malformed or truncated
// command, which is answered with a protocol error.
func (h *Handler) Process(req []byte) []byte {
	var out []byte
	for len(req) > 0 {
		args, n, err := parseCommand(req)
		if err != nil {
			h.logger.Debug("command.parse", zap.Error(err))
			return appendError(out, "Protocol error: "+err.Error())
		}
		req = req[n:]

		if len(args) == 0 {
			continue
		}
		out = h.execute(out, args)
	}
	return out
}

type command struct {
	// arity counts the command name; negative means at least -arity
	arity int
	run   func(h *Handler, out []byte, args []string) []byte
}

var commands = map[string]command{
	"ping":     {-1, ping},
	"echo":     {2, echo},
	"set":      {3, set},
	"get":      {2, get},
	"del":      {-2, del},
	"exists":   {-2, exists},
	"keys":     {2, keys},
	"dbsize":   {1, dbsize},
	"flushall": {-1, flushall},
	"type":     {2, typeOf},
	"append":   {3, appendValue},
	"strlen":   {2, strlen},
	"incr":     {2, incrBy(1)},
	"decr":     {2, incrBy(-1)},
}

func (h *Handler) execute(out []byte, args []string) []byte {
	name := strings.ToLower(args[0])
	cmd, ok := commands[name]
	if !ok {
		h.logger.Debug("command.unknown", zap.String("name", name))
		return appendError(out, fmt.Sprintf("unknown command '%s'", args[0]))
	}

	if (cmd.arity > 0 && len(args) != cmd.arity) || (cmd.arity < 0 && len(args) < -cmd.arity) {
		return appendError(out, fmt.Sprintf("wrong number of arguments for '%s' command", name))
	}

	h.logger.Debug("command", zap.String("name", name), zap.Int("args", len(args)-1))
	return cmd.run(h, out, args)
}

func ping(_ *Handler, out []byte, args []string) []byte {
	switch len(args) {
	case 1:
		return appendSimple(out, "PONG")
	case 2:
		return appendBulk(out, args[1])
	default:
		return appendError(out, "wrong number of arguments for 'ping' command")
	}
}

func echo(_ *Handler, out []byte, args []string) []byte {
	return appendBulk(out, args[1])
}

func set(h *Handler, out []byte, args []string) []byte {
	h.store.Set(args[1], args[2])
	return appendSimple(out, "OK")
}

func get(h *Handler, out []byte, args []string) []byte {
	v, ok := h.store.Get(args[1])
	if !ok {
		return appendNull(out)
	}
	return appendBulk(out, v)
}

func del(h *Handler, out []byte, args []string) []byte {
	return appendInt(out, int64(h.store.Del(args[1:]...)))
}

func exists(h *Handler, out []byte, args []string) []byte {
	return appendInt(out, int64(h.store.Exists(args[1:]...)))
}

func keys(h *Handler, out []byte, args []string) []byte {
	re, err := compileGlob(args[1])
	if err != nil {
		return appendError(out, "invalid pattern: "+err.Error())
	}
	matched := h.store.Keys(func(key string) bool {
		ok, err := re.MatchString(key)
		return err == nil && ok
	})
	return appendArray(out, matched)
}

func dbsize(h *Handler, out []byte, _ []string) []byte {
	return appendInt(out, int64(h.store.Len()))
}

func flushall(h *Handler, out []byte, _ []string) []byte {
	h.store.Flush()
	return appendSimple(out, "OK")
}

func typeOf(h *Handler, out []byte, args []string) []byte {
	if _, ok := h.store.Get(args[1]); ok {
		return appendSimple(out, "string")
	}
	return appendSimple(out, "none")
}

func appendValue(h *Handler, out []byte, args []string) []byte {
	v, _ := h.store.Update(args[1], func(old string, _ bool) (string, error) {
		return old + args[2], nil
	})
	return appendInt(out, int64(len(v)))
}

func strlen(h *Handler, out []byte, args []string) []byte {
	v, _ := h.store.Get(args[1])
	return appendInt(out, int64(len(v)))
}

var errNotInteger = errors.New("value is not an integer or out of range")

func incrBy(delta int64) func(h *Handler, out []byte, args []string) []byte {
	return func(h *Handler, out []byte, args []string) []byte {
		v, err := h.store.Update(args[1], func(old string, ok bool) (string, error) {
			var n int64
			if ok {
				var err error
				if n, err = strconv.ParseInt(old, 10, 64); err != nil {
					return "", errNotInteger
				}
			}
			if (delta > 0 && n > n+delta) || (delta < 0 && n < n+delta) {
				return "", errNotInteger
			}
			return strconv.FormatInt(n+delta, 10), nil
		})
		if err != nil {
			return appendError(out, err.Error())
		}
		n, _ := strconv.ParseInt(v, 10, 64)
		return appendInt(out, n)
	}
}
