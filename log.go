package httpwire

import (
	"io"

	"github.com/sirupsen/logrus"
)

// defaultLogger is the package-wide fallback used by Connections built
// with no explicit WithLogger option. It logs at Warn and above so a
// library consumer gets parse-error and connection-abort visibility
// without opting in to per-request debug noise.
var defaultLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}()

// discardLogger backs Config.Logger when a caller passes WithLogger(nil),
// so conn.go never needs nil checks around log calls.
var discardLogger = func() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}()

func loggerOrDiscard(l *logrus.Logger) *logrus.Logger {
	if l == nil {
		return discardLogger
	}
	return l
}
