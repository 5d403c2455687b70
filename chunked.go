package httpwire

import "strconv"

// CreateChunk renders buf as one HTTP chunked-transfer-coding frame:
// "{len:X}\r\n{buf}\r\n", with the length in uppercase hex and no
// leading zeros.
func CreateChunk(buf []byte) []byte {
	size := strconv.FormatInt(int64(len(buf)), 16)
	out := make([]byte, 0, len(size)+2+len(buf)+2)
	for i := 0; i < len(size); i++ {
		c := size[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out = append(out, c)
	}
	out = append(out, '\r', '\n')
	out = append(out, buf...)
	out = append(out, '\r', '\n')
	return out
}

// CreateChunkedBodyEnd renders the terminating "0\r\n" chunk, followed
// by any trailers and the final blank line
func CreateChunkedBodyEnd(trailers HeaderList) []byte {
	out := make([]byte, 0, 32)
	out = append(out, '0', '\r', '\n')
	for _, t := range trailers {
		out = append(out, t.Name...)
		out = append(out, ':', ' ')
		out = append(out, t.Value...)
		out = append(out, '\r', '\n')
	}
	out = append(out, '\r', '\n')
	return out
}
