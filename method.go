package httpwire

import (
	"github.com/intuitivelabs/bytescase"
)

// HTTPMethod is the numeric representation of a HTTP request method.
type HTTPMethod uint8

// method types
const (
	MUndef HTTPMethod = iota
	MGet
	MHead
	MPost
	MPut
	MDelete
	MConnect
	MOptions
	MTrace
	MPatch
	MOther // must be last
)

// method2Name translates a numeric HTTPMethod to its ASCII name.
var method2Name = [MOther + 1][]byte{
	MUndef:   []byte(""),
	MGet:     []byte("GET"),
	MHead:    []byte("HEAD"),
	MPost:    []byte("POST"),
	MPut:     []byte("PUT"),
	MDelete:  []byte("DELETE"),
	MConnect: []byte("CONNECT"),
	MOptions: []byte("OPTIONS"),
	MTrace:   []byte("TRACE"),
	MPatch:   []byte("PATCH"),
	MOther:   []byte("OTHER"),
}

// Name returns the ASCII method name.
func (m HTTPMethod) Name() []byte {
	if m > MOther {
		return method2Name[MUndef]
	}
	return method2Name[m]
}

// String implements fmt.Stringer.
func (m HTTPMethod) String() string {
	return string(m.Name())
}

const (
	mthBitsLen   uint = 2
	mthBitsFChar uint = 3
)

type mth2Type struct {
	n []byte
	t HTTPMethod
}

var mthNameLookup [1 << (mthBitsLen + mthBitsFChar)][]mth2Type

func hashMthName(n []byte) int {
	const (
		mC = (1 << mthBitsFChar) - 1
		mL = (1 << mthBitsLen) - 1
	)
	return (int(bytescase.ByteToLower(n[0])) & mC) |
		((len(n) & mL) << mthBitsFChar)
}

func init() {
	for i := MUndef + 1; i < MOther; i++ {
		h := hashMthName(method2Name[i])
		mthNameLookup[h] = append(mthNameLookup[h], mth2Type{method2Name[i], i})
	}
}

// GetMethodNo converts an ASCII method name to its numeric HTTPMethod,
// returning MOther for anything not in the well known set (still a
// valid request method, just not one the engine special-cases).
func GetMethodNo(buf []byte) HTTPMethod {
	if len(buf) == 0 {
		return MUndef
	}
	i := hashMthName(buf)
	for _, m := range mthNameLookup[i] {
		if bytescase.CmpEq(buf, m.n) {
			return m.t
		}
	}
	return MOther
}
