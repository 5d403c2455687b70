package httpwire

import (
	"sync"
	"time"

	"github.com/intuitivelabs/bytescase"
)

// HdrT identifies a well known header type. Headers outside this set
// parse the same way but are tagged HdrOther.
type HdrT uint16

const (
	HdrNone HdrT = iota
	HdrCLen
	HdrTrEncoding
	HdrUpgrade
	HdrConnection
	HdrHost
	HdrServer
	HdrDate
	HdrTE
	HdrTrailer
	HdrKeepAlive
	HdrProxyAuthenticate
	HdrProxyAuthorization
	HdrContentType
	HdrUserAgent
	HdrOther // generic, not recognized header; must be last
)

var hdrTStr = [...]string{
	HdrNone:               "nil",
	HdrCLen:                "Content-Length",
	HdrTrEncoding:          "Transfer-Encoding",
	HdrUpgrade:             "Upgrade",
	HdrConnection:          "Connection",
	HdrHost:                "Host",
	HdrServer:              "Server",
	HdrDate:                "Date",
	HdrTE:                  "TE",
	HdrTrailer:             "Trailer",
	HdrKeepAlive:           "Keep-Alive",
	HdrProxyAuthenticate:   "Proxy-Authenticate",
	HdrProxyAuthorization:  "Proxy-Authorization",
	HdrContentType:         "Content-Type",
	HdrUserAgent:           "User-Agent",
	HdrOther:               "Generic",
}

func (t HdrT) String() string {
	if int(t) >= len(hdrTStr) {
		return "invalid"
	}
	return hdrTStr[t]
}

type hdr2Type struct {
	n []byte
	t HdrT
}

var hdrName2Type = [...]hdr2Type{
	{n: []byte("content-length"), t: HdrCLen},
	{n: []byte("transfer-encoding"), t: HdrTrEncoding},
	{n: []byte("upgrade"), t: HdrUpgrade},
	{n: []byte("connection"), t: HdrConnection},
	{n: []byte("host"), t: HdrHost},
	{n: []byte("server"), t: HdrServer},
	{n: []byte("date"), t: HdrDate},
	{n: []byte("te"), t: HdrTE},
	{n: []byte("trailer"), t: HdrTrailer},
	{n: []byte("keep-alive"), t: HdrKeepAlive},
	{n: []byte("proxy-authenticate"), t: HdrProxyAuthenticate},
	{n: []byte("proxy-authorization"), t: HdrProxyAuthorization},
	{n: []byte("content-type"), t: HdrContentType},
	{n: []byte("user-agent"), t: HdrUserAgent},
}

const (
	hnBitsLen   uint = 2
	hnBitsFChar uint = 5
)

var hdrNameLookup [1 << (hnBitsLen + hnBitsFChar)][]hdr2Type

func hashHdrName(n []byte) int {
	const (
		mC = (1 << hnBitsFChar) - 1
		mL = (1 << hnBitsLen) - 1
	)
	return (int(bytescase.ByteToLower(n[0])) & mC) |
		((len(n) & mL) << hnBitsFChar)
}

func init() {
	for _, h := range hdrName2Type {
		i := hashHdrName(h.n)
		hdrNameLookup[i] = append(hdrNameLookup[i], h)
	}
}

// GetHdrType returns the HdrT for a header name with no leading or
// trailing whitespace.
func GetHdrType(name []byte) HdrT {
	if len(name) == 0 {
		return HdrOther
	}
	i := hashHdrName(name)
	for _, h := range hdrNameLookup[i] {
		if bytescase.CmpEq(name, h.n) {
			return h.t
		}
	}
	return HdrOther
}

// Header is a single wire header or trailer field.
type Header struct {
	Name  string
	Value string
	Type  HdrT
}

// HeaderList is an ordered, duplicate-preserving collection of headers
// or trailers: wire order and duplicates are preserved, and lookup is
// case-insensitive ASCII.
type HeaderList []Header

// Add appends a header, preserving wire order.
func (hl *HeaderList) Add(name, value string) {
	*hl = append(*hl, Header{Name: name, Value: value, Type: GetHdrType([]byte(name))})
}

// Get returns the value of the first header matching name
// case-insensitively, and whether it was found.
func (hl HeaderList) Get(name string) (string, bool) {
	nb := []byte(name)
	for _, h := range hl {
		if bytescase.CmpEq([]byte(h.Name), nb) {
			return h.Value, true
		}
	}
	return "", false
}

// GetField does a case-insensitive first-match lookup with an explicit
// default.
func GetField(hl HeaderList, name, def string) string {
	if v, ok := hl.Get(name); ok {
		return v
	}
	return def
}

// GetAll returns every value for a header name, in wire order, for
// headers that are legitimately repeated (e.g. Set-Cookie upstream of
// this engine, or multiple Via/X-Forwarded-For hops).
func (hl HeaderList) GetAll(name string) []string {
	nb := []byte(name)
	var out []string
	for _, h := range hl {
		if bytescase.CmpEq([]byte(h.Name), nb) {
			out = append(out, h.Value)
		}
	}
	return out
}

// Has reports whether a header of type t is present. It reclassifies
// each entry's name rather than trusting a stored Type, so it works
// whether the list was built via Add or assembled as a struct literal.
func (hl HeaderList) Has(t HdrT) bool {
	for _, h := range hl {
		if GetHdrType([]byte(h.Name)) == t {
			return true
		}
	}
	return false
}

// hopByHop is the RFC 2616 §13.5.1 set of headers application code may
// never set directly; the writer owns them.
var hopByHop = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailers":            {},
	"transfer-encoding":   {},
	"upgrade":             {},
}

// IsHopByHop reports whether name is a hop-by-hop header, compared
// case-insensitively.
func IsHopByHop(name string) bool {
	lb := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		lb[i] = bytescase.ByteToLower(name[i])
	}
	_, ok := hopByHop[string(lb)]
	return ok
}

// ParseOptionHeader parses a "value[; param=val ...]" header, following
// RFC 2616 token/quoted-string grammar. It never returns an error: on
// malformed input it stops and returns whatever has been parsed so far.
func ParseOptionHeader(header string, sep byte) (string, map[string]string) {
	params := map[string]string{}
	buf := []byte(header)
	p1 := -1
	for i, c := range buf {
		if c == sep {
			p1 = i
			break
		}
	}
	if p1 == -1 {
		return header, params
	}
	p2 := p1 + 1
	for {
		p2 = skipOWS(buf, p2)
		if p2 >= len(buf) {
			break
		}
		nameStart := p2
		p2 = scanToken(buf, p2)
		if p2 == nameStart {
			break
		}
		name := string(buf[nameStart:p2])
		if p2 >= len(buf) || buf[p2] != '=' {
			break
		}
		p2++
		if p2 >= len(buf) {
			break
		}
		var value string
		if buf[p2] == '"' {
			end, v, ok := scanQuotedString(buf, p2)
			if !ok {
				break
			}
			value = v
			p2 = end
		} else {
			valStart := p2
			p2 = scanToken(buf, p2)
			if p2 == valStart {
				break
			}
			value = string(buf[valStart:p2])
		}
		params[name] = value
		p2 = skipOWS(buf, p2)
		if p2 >= len(buf) || buf[p2] != sep {
			break
		}
		p2++
	}
	return header[:p1], params
}

// scanQuotedString parses a quoted-string starting at buf[start] (which
// must be '"'). It returns the offset right after the closing quote,
// the unescaped value and true on success.
func scanQuotedString(buf []byte, start int) (int, string, bool) {
	i := start + 1
	var val []byte
	for i < len(buf) {
		c := buf[i]
		if c == '"' {
			return i + 1, string(val), true
		}
		if c == '\\' && i+1 < len(buf) && buf[i+1] == '"' {
			val = append(val, '"')
			i += 2
			continue
		}
		if !isQdtext(c) {
			return i, "", false
		}
		val = append(val, c)
		i++
	}
	return i, "", false
}

var weekdays = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
var months = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

var rfc1123Cache struct {
	mu    sync.Mutex
	stamp int64
	date  []byte
}

// RFC1123Date formats t (converted to UTC) as
// "Mon, 02 Jan 2006 15:04:05 GMT" using fixed English names. A
// single-slot memoization on the integer second avoids re-formatting
// the Date header on every response in a tight request loop.
func RFC1123Date(t time.Time) []byte {
	stamp := t.Unix()
	rfc1123Cache.mu.Lock()
	defer rfc1123Cache.mu.Unlock()
	if stamp == rfc1123Cache.stamp && rfc1123Cache.date != nil {
		return rfc1123Cache.date
	}
	tm := t.UTC()
	buf := make([]byte, 0, 29)
	buf = append(buf, weekdays[int(tm.Weekday())]...)
	buf = append(buf, ',', ' ')
	buf = appendPad2(buf, tm.Day())
	buf = append(buf, ' ')
	buf = append(buf, months[int(tm.Month())-1]...)
	buf = append(buf, ' ')
	buf = appendPad4(buf, tm.Year())
	buf = append(buf, ' ')
	buf = appendPad2(buf, tm.Hour())
	buf = append(buf, ':')
	buf = appendPad2(buf, tm.Minute())
	buf = append(buf, ':')
	buf = appendPad2(buf, tm.Second())
	buf = append(buf, ' ', 'G', 'M', 'T')
	rfc1123Cache.stamp = stamp
	rfc1123Cache.date = buf
	return buf
}

func appendPad2(buf []byte, v int) []byte {
	return append(buf, byte('0'+v/10), byte('0'+v%10))
}

func appendPad4(buf []byte, v int) []byte {
	return append(buf, byte('0'+v/1000), byte('0'+(v/100)%10), byte('0'+(v/10)%10), byte('0'+v%10))
}
