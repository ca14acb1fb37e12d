package utilities

import (
	"io"

	"github.com/sirupsen/logrus"
)

// maxResponseBodyBytes bounds how much of an upstream response body is read
// into memory.
const maxResponseBodyBytes = 4 << 20

func SafeClose(closer io.Closer) {
	if err := closer.Close(); err != nil {
		logrus.WithError(err).Warn("Close operation failed")
	}
}

// ReadLimited reads at most maxResponseBodyBytes from r.
func ReadLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxResponseBodyBytes))
}
