package command

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var errIncomplete = errors.New("incomplete request")

// parseCommand reads one command from b and returns its arguments and the
// number of bytes consumed. Requests are either RESP arrays of bulk strings
// or inline, whitespace separated lines. An inline request without a line
// terminator runs to the end of b.
func parseCommand(b []byte) ([]string, int, error) {
	if b[0] == '*' {
		return parseArray(b)
	}

	line, n := b, len(b)
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		line, n = b[:i], i+1
	}
	return strings.Fields(string(bytes.TrimSuffix(line, []byte{'\r'}))), n, nil
}

func parseArray(b []byte) ([]string, int, error) {
	count, pos, err := readInt(b, 1)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid multibulk length: %w", err)
	}
	if count <= 0 {
		return nil, pos, nil
	}
	// Every element takes at least four bytes, so no frame in b can hold more
	if count > len(b) {
		return nil, 0, fmt.Errorf("invalid multibulk length %d", count)
	}

	args := make([]string, 0, min(count, len(b)/4))
	for i := 0; i < count; i++ {
		if pos >= len(b) {
			return nil, 0, errIncomplete
		}
		if b[pos] != '$' {
			return nil, 0, fmt.Errorf("expected '$', got '%c'", b[pos])
		}

		size, next, err := readInt(b, pos+1)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid bulk length: %w", err)
		}
		if size < 0 || size > len(b) {
			return nil, 0, fmt.Errorf("invalid bulk length %d", size)
		}
		if size+2 > len(b)-next {
			return nil, 0, errIncomplete
		}

		end := next + size
		if b[end] != '\r' || b[end+1] != '\n' {
			return nil, 0, errors.New("bulk string not terminated by CRLF")
		}

		args = append(args, string(b[next:end]))
		pos = end + 2
	}
	return args, pos, nil
}

// readInt parses the CRLF terminated integer starting at b[start] and returns
// it with the offset just past the terminator.
func readInt(b []byte, start int) (int, int, error) {
	i := bytes.Index(b[start:], []byte("\r\n"))
	if i < 0 {
		return 0, 0, errIncomplete
	}
	v, err := strconv.Atoi(string(b[start : start+i]))
	if err != nil {
		return 0, 0, err
	}
	return v, start + i + 2, nil
}

func appendSimple(b []byte, s string) []byte {
	b = append(b, '+')
	b = append(b, s...)
	return append(b, '\r', '\n')
}

func appendError(b []byte, msg string) []byte {
	b = append(b, "-ERR "...)
	b = append(b, msg...)
	return append(b, '\r', '\n')
}

func appendInt(b []byte, n int64) []byte {
	b = append(b, ':')
	b = strconv.AppendInt(b, n, 10)
	return append(b, '\r', '\n')
}

func appendBulk(b []byte, s string) []byte {
	b = append(b, '$')
	b = strconv.AppendInt(b, int64(len(s)), 10)
	b = append(b, '\r', '\n')
	b = append(b, s...)
	return append(b, '\r', '\n')
}

func appendNull(b []byte) []byte {
	return append(b, "$-1\r\n"...)
}

func appendArray(b []byte, items []string) []byte {
	b = append(b, '*')
	b = strconv.AppendInt(b, int64(len(items)), 10)
	b = append(b, '\r', '\n')
	for _, s := range items {
		b = appendBulk(b, s)
	}
	return b
}
