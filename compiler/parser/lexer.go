package parser

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/brimdata/htsql/compiler/srcfiles"
)

type TokenKind int

const (
	EndToken TokenKind = iota
	NameToken
	StringToken
	NumberToken
	SymbolToken
	LabelToken
)

func (k TokenKind) String() string {
	switch k {
	case EndToken:
		return "end of input"
	case NameToken:
		return "name"
	case StringToken:
		return "string"
	case NumberToken:
		return "number"
	case SymbolToken:
		return "symbol"
	case LabelToken:
		return "label"
	}
	return fmt.Sprintf("token(%d)", int(k))
}

type Token struct {
	Kind  TokenKind
	Value string
	Mark  srcfiles.Mark
}

func (t Token) String() string {
	switch t.Kind {
	case EndToken:
		return "end of input"
	case StringToken:
		return "'" + strings.ReplaceAll(t.Value, "'", "''") + "'"
	}
	return "'" + t.Value + "'"
}

type mode int

const (
	topMode mode = iota
	locatorMode
)

type rule struct {
	kind    TokenKind
	pattern *regexp.Regexp
	// skip discards the token (whitespace).
	skip bool
	// push and pop adjust the mode stack after the token is produced.
	push mode
	pop  bool
}

// Symbols in priority order: a longer symbol must precede every symbol
// that is a prefix of it.
var symbols = []string{
	"!==", "!=", "!~", "!",
	"<=", "<", ">=", ">",
	"==", "=", "~",
	"&", "|", "->",
	":=", ":",
	".", ",", "?", "^", "/", "*", "+", "-",
	"(", ")", "{", "}", "[", "]",
	"@", "$",
}

func anchored(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`\A(?:` + pattern + `)`)
}

func symbolPattern(syms []string) string {
	quoted := make([]string, 0, len(syms))
	for _, s := range syms {
		quoted = append(quoted, regexp.QuoteMeta(s))
	}
	return strings.Join(quoted, "|")
}

const (
	whitespacePattern = `\s+`
	numberPattern     = `(?:[0-9]*\.)?[0-9]+[eE][+-]?[0-9]+|[0-9]*\.[0-9]+|[0-9]+\.?`
	namePattern       = `[\p{L}_][\p{L}\p{N}_]*`
	stringPattern     = `'(?:[^']|'')*'`
	labelPattern      = `[\p{L}\p{N}_-]+`
)

var modes = map[mode][]rule{
	topMode: {
		{pattern: anchored(whitespacePattern), skip: true},
		{kind: NumberToken, pattern: anchored(numberPattern)},
		{kind: NameToken, pattern: anchored(namePattern)},
		{kind: StringToken, pattern: anchored(stringPattern)},
		{kind: SymbolToken, pattern: anchored(`\[`), push: locatorMode},
		{kind: SymbolToken, pattern: anchored(symbolPattern(symbols))},
	},
	locatorMode: {
		{pattern: anchored(whitespacePattern), skip: true},
		{kind: LabelToken, pattern: anchored(labelPattern)},
		{kind: StringToken, pattern: anchored(stringPattern)},
		{kind: SymbolToken, pattern: anchored(`\[|\(`), push: locatorMode},
		{kind: SymbolToken, pattern: anchored(`\]|\)`), pop: true},
		{kind: SymbolToken, pattern: anchored(`\.`)},
	},
}

// Scan decodes percent-escapes in the query, validates the result as
// UTF-8 and splits it into tokens.  The returned slice always ends with
// an EndToken.  Token marks refer to the decoded text.
func Scan(query string) ([]Token, error) {
	text, err := unquote(query)
	if err != nil {
		return nil, err
	}
	s := &scanner{text: text, stack: []mode{topMode}}
	return s.scan()
}

type scanner struct {
	text  string
	pos   int
	stack []mode
}

func (s *scanner) mark(start, end int) srcfiles.Mark {
	return srcfiles.NewMark(s.text, start, end)
}

func (s *scanner) scan() ([]Token, error) {
	var tokens []Token
	for s.pos < len(s.text) {
		tok, ok, err := s.next()
		if err != nil {
			return nil, err
		}
		if ok {
			tokens = append(tokens, tok)
		}
	}
	if len(s.stack) > 1 {
		return nil, srcfiles.New(srcfiles.ScanError, s.mark(len(s.text), len(s.text)), "unexpected end of input: expected ']'")
	}
	tokens = append(tokens, Token{Kind: EndToken, Mark: s.mark(len(s.text), len(s.text))})
	return tokens, nil
}

func (s *scanner) next() (Token, bool, error) {
	rest := s.text[s.pos:]
	for _, r := range modes[s.stack[len(s.stack)-1]] {
		loc := r.pattern.FindStringIndex(rest)
		if loc == nil || loc[1] == 0 {
			continue
		}
		start, end := s.pos, s.pos+loc[1]
		s.pos = end
		if r.skip {
			return Token{}, false, nil
		}
		value := s.text[start:end]
		if r.kind == StringToken {
			value = strings.ReplaceAll(value[1:len(value)-1], "''", "'")
		}
		if r.pop {
			if len(s.stack) == 1 {
				return Token{}, false, srcfiles.New(srcfiles.ScanError, s.mark(start, end), "unbalanced '%s'", value)
			}
			s.stack = s.stack[:len(s.stack)-1]
		} else if r.push != topMode {
			s.stack = append(s.stack, r.push)
		}
		return Token{Kind: r.kind, Value: value, Mark: s.mark(start, end)}, true, nil
	}
	c, size := utf8.DecodeRuneInString(rest)
	if c == '\'' {
		return Token{}, false, srcfiles.New(srcfiles.ScanError, s.mark(s.pos, len(s.text)), "unterminated string")
	}
	return Token{}, false, srcfiles.New(srcfiles.ScanError, s.mark(s.pos, s.pos+size), "unexpected character %q", c)
}

// unquote decodes %XX escapes.  Errors for malformed escapes and for
// escapes that decode to invalid UTF-8 point into the raw query.
func unquote(query string) (string, error) {
	if !strings.Contains(query, "%") {
		if !utf8.ValidString(query) {
			pos := invalidOffset(query)
			return "", srcfiles.New(srcfiles.ScanError, srcfiles.NewMark(query, pos, pos+1), "cannot decode an UTF-8 character")
		}
		return query, nil
	}
	var b strings.Builder
	// origin maps offsets of the decoded text to offsets of the query.
	origin := make([]int, 0, len(query))
	for k := 0; k < len(query); {
		c := query[k]
		if c != '%' {
			b.WriteByte(c)
			origin = append(origin, k)
			k++
			continue
		}
		if k+2 >= len(query) || !isHex(query[k+1]) || !isHex(query[k+2]) {
			end := min(k+3, len(query))
			return "", srcfiles.New(srcfiles.ScanError, srcfiles.NewMark(query, k, end), "symbol '%%' must be followed by two hexdecimal digits")
		}
		b.WriteByte(unhex(query[k+1])<<4 | unhex(query[k+2]))
		origin = append(origin, k)
		k += 3
	}
	text := b.String()
	if !utf8.ValidString(text) {
		pos := origin[invalidOffset(text)]
		end := pos + 1
		if query[pos] == '%' {
			end = pos + 3
		}
		return "", srcfiles.New(srcfiles.ScanError, srcfiles.NewMark(query, pos, end), "cannot decode an UTF-8 character")
	}
	return text, nil
}

func invalidOffset(s string) int {
	for k := 0; k < len(s); {
		r, size := utf8.DecodeRuneInString(s[k:])
		if r == utf8.RuneError && size <= 1 {
			return k
		}
		k += size
	}
	return len(s)
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	}
	return c - 'A' + 10
}
