package fbench

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

const (
	// DefaultCharset is assumed when the server declares none. Kept as
	// a fallback the caller can override on the Fetcher.
	DefaultCharset = "ISO-8859-1"

	DefaultTimeout = 10 * time.Second
)

// Fetcher performs request/response exchanges against delay server
// targets. One Fetcher can run any number of exchanges concurrently;
// every exchange owns its connection exclusively.
type Fetcher struct {
	timeout time.Duration
	charset string
	readers *Pool[*bufio.Reader]
}

func NewFetcher(timeout time.Duration, charset string) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if charset == "" {
		charset = DefaultCharset
	}
	return &Fetcher{
		timeout: timeout,
		charset: charset,
		readers: NewPool(func() *bufio.Reader { return bufio.NewReader(nil) }),
	}
}

// Fetch runs one full exchange against d. The deadline is measured
// from this call, independently of any other exchange. Failures are
// reported in Result.Err and never affect sibling exchanges.
func (f *Fetcher) Fetch(ctx context.Context, d Descriptor) Result {
	start := time.Now()
	body, err := f.exchange(ctx, d)
	return Result{Descriptor: d, Body: body, RTT: time.Since(start), Err: err}
}

func (f *Fetcher) exchange(ctx context.Context, d Descriptor) (string, error) {
	deadline := time.Now().Add(f.timeout)

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", d.Addr())
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	defer conn.Close()

	conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now())
	})
	defer stop()

	request := fmt.Sprintf("GET %s HTTP/1.1\r\nHost: %s\r\nConnection: close\r\n\r\n", d.Path(), d.Host)
	if _, err := io.WriteString(conn, request); err != nil {
		return "", classify(err)
	}

	r := f.readers.Get()
	r.Reset(conn)
	defer f.readers.Put(r)

	header, raw, err := readResponse(r)
	if err != nil {
		return "", err
	}

	return decode(raw, ParseCharset(header, f.charset))
}

// readResponse consumes the stream line by line: header lines up to
// the first empty line, then body bytes until the server closes.
func readResponse(r *bufio.Reader) (header []string, body []byte, err error) {
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil, fmt.Errorf("%w: stream closed before header boundary", ErrMalformedHeader)
			}
			return nil, nil, classify(err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		header = append(header, line)
	}

	for {
		chunk, err := r.ReadBytes('\n')
		body = append(body, chunk...)
		if errors.Is(err, io.EOF) {
			return header, body, nil
		}
		if err != nil {
			return nil, nil, classify(err)
		}
	}
}

// classify maps a transport error onto the package taxonomy.
func classify(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
}

// decode interprets raw under the charset the server declared. The
// decoder substitutes invalid sequences with U+FFFD; a substitution
// that was not already present in the input means the body does not
// conform to the declared encoding.
func decode(raw []byte, charset string) (string, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", fmt.Errorf("%w: unknown charset %q", ErrDecodeFailed, charset)
	}
	decoded, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecodeFailed, err)
	}
	text := string(decoded)
	if strings.ContainsRune(text, utf8.RuneError) && !bytes.Contains(raw, []byte("�")) {
		return "", fmt.Errorf("%w: body is not valid %s", ErrDecodeFailed, charset)
	}
	return strings.TrimRight(text, "\r\n"), nil
}
