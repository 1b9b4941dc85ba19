package sqlgen

import (
	"errors"
	"strings"
)

var (
	// ErrNotWrite rejects statements other than INSERT or UPDATE
	ErrNotWrite = errors.New("only INSERT or UPDATE statements are allowed")
	// ErrNotSelect rejects statements other than SELECT
	ErrNotSelect = errors.New("only SELECT statements are allowed")
	// ErrMultipleStatements rejects batches
	ErrMultipleStatements = errors.New("only a single statement is allowed")
	// ErrEmptyStatement rejects blank input
	ErrEmptyStatement = errors.New("statement is empty")
)

// CheckWrite returns the normalized statement if it is a single INSERT or UPDATE
func CheckWrite(stmt string) (string, error) {
	return check(stmt, ErrNotWrite, "insert", "update")
}

// CheckSelect returns the normalized statement if it is a single SELECT
func CheckSelect(stmt string) (string, error) {
	return check(stmt, ErrNotSelect, "select")
}

func check(stmt string, kindErr error, verbs ...string) (string, error) {
	s := strings.TrimSpace(stmt)
	s = strings.TrimSpace(strings.TrimRight(s, "; \t\r\n"))
	if s == "" {
		return "", ErrEmptyStatement
	}

	lower := strings.ToLower(s)
	ok := false
	for _, v := range verbs {
		if strings.HasPrefix(lower, v) && (len(lower) == len(v) || isWordEnd(lower[len(v)])) {
			ok = true
			break
		}
	}
	if !ok {
		return "", kindErr
	}

	// reject when either SQLite or MySQL would see a separator
	for _, syn := range []syntax{standardSQL, mysqlSQL} {
		if sep, _ := syn.scan(s); sep {
			return "", ErrMultipleStatements
		}
	}
	return s, nil
}

// Unterminated reports whether s ends inside a string literal, quoted
// identifier or block comment under standard quote doubling. Dumps written
// by InsertStatement may break a literal across lines; callers use this to
// join them again.
func Unterminated(s string) bool {
	_, open := standardSQL.scan(s)
	return open
}

// syntax is the lexical rule set of one database
type syntax struct {
	backslashEscapes bool // \ escapes the next character inside '...' and "..."
	hashComments     bool // # starts a line comment
}

var (
	standardSQL = syntax{}
	mysqlSQL    = syntax{backslashEscapes: true, hashComments: true}
)

// scan walks s once. sep is true if a semicolon appears outside string
// literals and quoted identifiers. Semicolons inside comments count too,
// since MySQL runs /*! ... */ bodies. open is true if s ends inside a
// literal or a block comment.
func (syn syntax) scan(s string) (sep, open bool) {
	var quote byte
	lineComment, blockComment := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		var next byte
		if i+1 < len(s) {
			next = s[i+1]
		}
		switch {
		case lineComment:
			if c == '\n' {
				lineComment = false
			} else if c == ';' {
				sep = true
			}
		case blockComment:
			if c == '*' && next == '/' {
				blockComment = false
				i++
			} else if c == ';' {
				sep = true
			}
		case quote != 0:
			if syn.backslashEscapes && c == '\\' && quote != '`' {
				i++
				continue
			}
			if c == quote {
				// doubled quote is an escape
				if next == quote {
					i++
					continue
				}
				quote = 0
			}
		case c == '\'' || c == '"' || c == '`':
			quote = c
		case c == ';':
			sep = true
		case c == '-' && next == '-':
			lineComment = true
			i++
		case c == '#' && syn.hashComments:
			lineComment = true
		case c == '/' && next == '*':
			blockComment = true
			i++
		}
	}
	return sep, quote != 0 || blockComment
}

func isWordEnd(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '('
}
