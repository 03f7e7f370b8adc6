package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. Lines are split the way a
// Tailer splits them: CRLF is stripped, overlong lines are cut at
// maxLineBytes, and an unterminated last line is included. A missing file
// yields an error wrapping os.ErrNotExist; an empty one yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	r := newRing(maxLines)
	rest, _, err := readLines(file, nil, r.push)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	if len(rest) > 0 {
		r.push(strings.TrimSuffix(string(rest), "\r"))
	}
	return r.lines(), nil
}

// ring keeps the last n lines pushed into it. n <= 0 keeps everything.
type ring struct {
	buf   []string
	n     int
	idx   int
	count int
}

func newRing(n int) *ring {
	if n <= 0 {
		return &ring{}
	}
	return &ring{buf: make([]string, n), n: n}
}

func (r *ring) push(line string) {
	if r.n == 0 {
		r.buf = append(r.buf, line)
		r.count++
		return
	}
	r.buf[r.idx] = line
	r.idx = (r.idx + 1) % r.n
	if r.count < r.n {
		r.count++
	}
}

func (r *ring) lines() []string {
	if r.count == 0 {
		return []string{}
	}
	if r.n == 0 {
		return r.buf
	}
	out := make([]string, r.count)
	if r.count == r.n {
		for i := 0; i < r.count; i++ {
			out[i] = r.buf[(r.idx+i)%r.n]
		}
	} else {
		copy(out, r.buf[:r.count])
	}
	return out
}

// readLines reads complete lines from r, calling emit for each one with
// the trailing newline and any carriage return removed. Bytes after the
// last newline are returned as the unterminated remainder, prefixed by
// partial. n is the number of bytes consumed from r.
func readLines(r io.Reader, partial []byte, emit func(string)) (rest []byte, n int64, err error) {
	br := bufio.NewReaderSize(r, 64*1024)
	rest = partial
	for {
		chunk, rerr := br.ReadSlice('\n')
		n += int64(len(chunk))
		switch {
		case rerr == nil:
			line := chunk[:len(chunk)-1]
			if len(rest) > 0 {
				line = append(rest, line...)
				rest = nil
			}
			emit(strings.TrimSuffix(string(line), "\r"))
		case errors.Is(rerr, bufio.ErrBufferFull):
			rest = append(rest, chunk...)
			if len(rest) >= maxLineBytes {
				emit(string(rest))
				rest = nil
			}
		case errors.Is(rerr, io.EOF):
			if len(chunk) > 0 {
				rest = append(rest, chunk...)
			}
			return rest, n, nil
		default:
			return rest, n, rerr
		}
	}
}
