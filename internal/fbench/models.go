package fbench

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Descriptor identifies one fetch target. Delay is serialized into the
// request path and interpreted by the server as seconds to wait before
// replying.
type Descriptor struct {
	Host  string
	Port  int
	Delay float64
}

func (d Descriptor) Addr() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

func (d Descriptor) Path() string {
	return "/" + strconv.FormatFloat(d.Delay, 'f', -1, 64)
}

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrTimeout          = errors.New("timeout")
	ErrDecodeFailed     = errors.New("decode failed")
	ErrMalformedHeader  = errors.New("malformed header")
	ErrEmptyBatch       = errors.New("empty batch")
)

// Result is the outcome of a single exchange. Body is empty whenever
// Err is set; callers must check Err before trusting Body.
type Result struct {
	Descriptor Descriptor
	Body       string
	RTT        time.Duration
	Err        error
}

// Report aggregates one batch. Results has the same length and order
// as the descriptor sequence the batch was built from, regardless of
// completion order.
type Report struct {
	Results     []Result
	Elapsed     time.Duration
	SumOfDelays float64
}
