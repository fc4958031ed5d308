package record

import (
	"strconv"
	"sync/atomic"
	"time"
)

var lastMillis atomic.Int64

// NextMillis returns the current unix time in milliseconds, bumped forward
// when needed so that successive calls in one process never repeat a value.
func NextMillis() int64 {
	for {
		now := time.Now().UnixMilli()
		last := lastMillis.Load()
		if now <= last {
			now = last + 1
		}
		if lastMillis.CompareAndSwap(last, now) {
			return now
		}
	}
}

// TimestampID returns an id generator producing "<prefix>-<millis>".
func TimestampID(prefix string) func() string {
	return func() string {
		return prefix + "-" + strconv.FormatInt(NextMillis(), 10)
	}
}
