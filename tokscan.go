package httpwire

// byte-class scanners shared by the header codec (headers.go) and the
// incremental parser (parser.go), covering the RFC 2616 grammar this
// package needs: token characters, quoted-string text, and chunk-size
// hex digits.

// isTokenChar reports whether c is a valid RFC 2616 "token" character:
// token = 1*<any CHAR except CTLs or separators>
func isTokenChar(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '@', ',', ';', ':', '\\', '"', '/',
		'[', ']', '?', '=', '{', '}', ' ', '\t':
		return false
	}
	return c > 31 && c < 127
}

// isQdtext reports whether c is valid unescaped quoted-string content,
//: [ \x21\x23-\xFF] or an escaped '\"'.
func isQdtext(c byte) bool {
	return c == ' ' || c == 0x21 || (c >= 0x23 && c <= 0xff)
}

// skipOWS advances i past optional horizontal whitespace (space, tab).
func skipOWS(buf []byte, i int) int {
	for i < len(buf) && (buf[i] == ' ' || buf[i] == '\t') {
		i++
	}
	return i
}

// scanToken advances i past a run of token characters, returning the
// new offset. It never reports an error; callers check for an empty
// match themselves.
func scanToken(buf []byte, i int) int {
	for i < len(buf) && isTokenChar(buf[i]) {
		i++
	}
	return i
}

// hexDigitVal returns the value of an ASCII hex digit and true, or
// (0, false) if c is not a hex digit.
func hexDigitVal(c byte) (uint64, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint64(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint64(c-'A') + 10, true
	}
	return 0, false
}

// decDigitVal returns the value of an ASCII decimal digit and true, or
// (0, false) if c is not a decimal digit.
func decDigitVal(c byte) (uint64, bool) {
	if c >= '0' && c <= '9' {
		return uint64(c - '0'), true
	}
	return 0, false
}

// maxAccumVal is the overflow guard used while accumulating chunk-size
// digits one at a time across possibly many Parser.Execute calls; far
// below int64 overflow. Content-Length values are parsed without this
// guard.
const maxAccumVal = 1 << 48
