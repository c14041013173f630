package curlparse

import (
	"errors"
	"strings"
)

var (
	errUnterminatedQuote  = errors.New("unterminated quoted string")
	errUnterminatedEscape = errors.New("unterminated escape sequence")
	errInvalidHexEscape   = errors.New("invalid hex escape")
)

type quoteMode int

const (
	quoteNone quoteMode = iota
	quoteSingle
	quoteDouble
	quoteANSI
)

// lexer splits a command line into shell words. It understands single
// quotes (literal), double quotes (backslash aware), ANSI-C $'...' quoting,
// backslash escapes and backslash-newline continuations.
type lexer struct {
	rs    []rune
	pos   int
	mode  quoteMode
	buf   strings.Builder
	dirty bool
	out   []string
}

func splitWords(input string) ([]string, error) {
	lx := &lexer{rs: []rune(input)}
	if err := lx.run(); err != nil {
		return nil, err
	}
	return lx.out, nil
}

func (lx *lexer) emit(r rune) {
	lx.buf.WriteRune(r)
	lx.dirty = true
}

func (lx *lexer) flush() {
	if !lx.dirty {
		return
	}
	lx.out = append(lx.out, lx.buf.String())
	lx.buf.Reset()
	lx.dirty = false
}

func (lx *lexer) run() error {
	for lx.pos < len(lx.rs) {
		r := lx.rs[lx.pos]
		lx.pos++

		switch lx.mode {
		case quoteSingle:
			if r == '\'' {
				lx.mode = quoteNone
				continue
			}
			lx.emit(r)

		case quoteDouble:
			switch r {
			case '"':
				lx.mode = quoteNone
			case '\\':
				if err := lx.escape(quoteDouble); err != nil {
					return err
				}
			default:
				lx.emit(r)
			}

		case quoteANSI:
			switch r {
			case '\'':
				lx.mode = quoteNone
			case '\\':
				if err := lx.escape(quoteANSI); err != nil {
					return err
				}
			default:
				lx.emit(r)
			}

		default:
			switch {
			case r == '\'':
				lx.mode = quoteSingle
				lx.dirty = true
			case r == '"':
				lx.mode = quoteDouble
				lx.dirty = true
			case r == '$' && lx.peek() == '\'':
				lx.pos++
				lx.mode = quoteANSI
				lx.dirty = true
			case r == '\\':
				if err := lx.escape(quoteNone); err != nil {
					return err
				}
			case isSpace(r):
				lx.flush()
			default:
				lx.emit(r)
			}
		}
	}

	if lx.mode != quoteNone {
		return errUnterminatedQuote
	}
	lx.flush()
	return nil
}

func (lx *lexer) peek() rune {
	if lx.pos >= len(lx.rs) {
		return 0
	}
	return lx.rs[lx.pos]
}

// escape consumes the character after a backslash. Inside double quotes
// only $ ` " \ and newlines are escapable; other pairs are kept as typed.
func (lx *lexer) escape(mode quoteMode) error {
	if lx.pos >= len(lx.rs) {
		return errUnterminatedEscape
	}
	r := lx.rs[lx.pos]
	lx.pos++

	if mode != quoteANSI && (r == '\n' || r == '\r') {
		if r == '\r' && lx.peek() == '\n' {
			lx.pos++
		}
		return nil
	}
	if mode == quoteDouble && !strings.ContainsRune("$`\"\\", r) {
		lx.emit('\\')
		lx.emit(r)
		return nil
	}
	if mode != quoteANSI {
		lx.emit(r)
		return nil
	}

	switch r {
	case 'n':
		lx.emit('\n')
	case 'r':
		lx.emit('\r')
	case 't':
		lx.emit('\t')
	case 'x':
		v, err := lx.hex(2)
		if err != nil {
			return err
		}
		lx.emit(v)
	case 'u':
		v, err := lx.hex(4)
		if err != nil {
			return err
		}
		lx.emit(v)
	default:
		lx.emit(r)
	}
	return nil
}

func (lx *lexer) hex(n int) (rune, error) {
	if lx.pos+n > len(lx.rs) {
		return 0, errInvalidHexEscape
	}
	var v rune
	for _, r := range lx.rs[lx.pos : lx.pos+n] {
		var d rune
		switch {
		case r >= '0' && r <= '9':
			d = r - '0'
		case r >= 'a' && r <= 'f':
			d = r - 'a' + 10
		case r >= 'A' && r <= 'F':
			d = r - 'A' + 10
		default:
			return 0, errInvalidHexEscape
		}
		v = v*16 + d
	}
	lx.pos += n
	return v, nil
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
