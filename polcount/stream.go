package polcount

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"
)

var ErrMalformedInput = errors.New("malformed input")

type OpKind int

const (
	OpQuery OpKind = iota
	OpEnable
	OpDisable
)

type Op struct {
	Kind  OpKind
	Index int    // for OpEnable and OpDisable
	Text  string // for OpQuery
}

// ParseOp decodes one operation token: "+i" enables entry i, "-i" disables
// it, and any other token is queried verbatim. With marked set, a leading '?'
// of a query token is dropped.
func ParseOp(token string, marked bool) (Op, error) {
	if token == "" {
		return Op{}, fmt.Errorf("%w: empty operation", ErrMalformedInput)
	}
	switch token[0] {
	case '+', '-':
		// digits only, no second sign
		idx, err := strconv.ParseUint(token[1:], 10, 31)
		if err != nil {
			return Op{}, fmt.Errorf("%w: bad index in %q", ErrMalformedInput, token)
		}
		if token[0] == '+' {
			return Op{Kind: OpEnable, Index: int(idx)}, nil
		}
		return Op{Kind: OpDisable, Index: int(idx)}, nil
	}
	if marked && token[0] == queryMarker {
		return Op{Kind: OpQuery, Text: token[1:]}, nil
	}
	return Op{Kind: OpQuery, Text: token}, nil
}

type StreamOptions struct {
	// OpsFirst selects the legacy format: the header gives the operation
	// count before the entry count, and query tokens carry a '?' marker.
	OpsFirst bool
	Inactive bool // do not enable the dictionary before the first operation
}

type tokenReader struct {
	scanner *bufio.Scanner
}

func newTokenReader(r io.Reader) *tokenReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTokenSize)
	scanner.Split(bufio.ScanWords)
	return &tokenReader{scanner: scanner}
}

func (t *tokenReader) next(what string) (string, error) {
	if t.scanner.Scan() {
		return t.scanner.Text(), nil
	}
	if err := t.scanner.Err(); err != nil {
		return "", fmt.Errorf("read %s: %w", what, err)
	}
	return "", fmt.Errorf("%w: unexpected end of input, expecting %s", ErrMalformedInput, what)
}

func (t *tokenReader) count(what string) (int, error) {
	tok, err := t.next(what)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: bad %s %q", ErrMalformedInput, what, tok)
	}
	return n, nil
}

// RunStream reads a dictionary and an operation stream from r, and writes the
// count of every query to w, one per line.
func RunStream(r io.Reader, w io.Writer, opts StreamOptions, logger *zap.SugaredLogger) error {
	in := newTokenReader(r)

	var numEntries, numOps int
	var err error
	if opts.OpsFirst {
		if numOps, err = in.count("operation count"); err != nil {
			return err
		}
		if numEntries, err = in.count("entry count"); err != nil {
			return err
		}
	} else {
		if numEntries, err = in.count("entry count"); err != nil {
			return err
		}
		if numOps, err = in.count("operation count"); err != nil {
			return err
		}
	}
	logger.Debugw("stream header", zap.Int("entries", numEntries), zap.Int("ops", numOps))

	patterns := make([]string, 0, minInt(numEntries, maxPrealloc))
	for i := 0; i < numEntries; i++ {
		p, err := in.next("dictionary entry")
		if err != nil {
			return err
		}
		patterns = append(patterns, p)
	}
	counter := NewCounter(patterns, logger)
	if !opts.Inactive {
		counter.EnableAll()
	}

	out := bufio.NewWriter(w)
	buf := make([]byte, 0, 24)
	for i := 0; i < numOps; i++ {
		tok, err := in.next("operation")
		if err != nil {
			return err
		}
		op, err := ParseOp(tok, opts.OpsFirst)
		if err != nil {
			return err
		}
		switch op.Kind {
		case OpEnable:
			err = counter.Enable(op.Index)
		case OpDisable:
			err = counter.Disable(op.Index)
		case OpQuery:
			buf = strconv.AppendUint(buf[:0], counter.Query(op.Text), 10)
			buf = append(buf, '\n')
			_, err = out.Write(buf)
		}
		if err != nil {
			return fmt.Errorf("operation %d (%s): %w", i+1, shorten(tok), err)
		}
	}
	return out.Flush()
}
