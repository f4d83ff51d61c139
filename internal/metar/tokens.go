package metar

import "strings"

// Tokenize splits a trimmed raw report into its whitespace-delimited groups.
// Returns (nil, false) when the input contains nothing but whitespace.
func Tokenize(raw string) ([]string, bool) {
	fields := strings.Fields(strings.TrimSpace(raw))
	if len(fields) == 0 {
		return nil, false
	}
	return fields, true
}

// cursor is the single read position over a token sequence. It is created once
// per Parse call and never shared; decoders advance it only when they
// recognize their group at the current position.
type cursor struct {
	tokens []string
	pos    int
}

func newCursor(tokens []string) *cursor {
	return &cursor{tokens: tokens}
}

// current returns the token at the read position, or ("", false) at end of input.
func (c *cursor) current() (string, bool) {
	if c.pos >= len(c.tokens) {
		return "", false
	}
	return c.tokens[c.pos], true
}

// peek returns the token n positions ahead without moving the cursor.
func (c *cursor) peek(n int) (string, bool) {
	if c.pos+n >= len(c.tokens) {
		return "", false
	}
	return c.tokens[c.pos+n], true
}

// advance moves the read position forward by n tokens.
func (c *cursor) advance(n int) {
	c.pos += n
	if c.pos > len(c.tokens) {
		c.pos = len(c.tokens)
	}
}

// rest returns all tokens from the read position to the end of the sequence.
func (c *cursor) rest() []string {
	return c.tokens[c.pos:]
}

// done reports whether every token has been consumed.
func (c *cursor) done() bool {
	return c.pos >= len(c.tokens)
}
