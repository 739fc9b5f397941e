package fbench

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"
)

// Server is the delay-injecting collaborator: it parses the requested
// delay out of the path, sleeps that long, then replies with a body
// announcing the delay. Every connection is handled in its own
// goroutine, so one slow client never delays another.
type Server struct {
	// Charset announced in Content-Type. DefaultCharset when empty.
	Charset string
}

// Start listens on addr and serves until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections from ln until ctx is done. The listener
// is closed on return.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		client, err := ln.Accept()
		if errors.Is(err, net.ErrClosed) {
			break
		} else if err != nil {
			log.Print(err)
			continue
		}
		go s.handle(ctx, client)
	}
	return nil
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	delay, err := readRequest(conn)
	if err != nil {
		log.Printf("error from %s: %v", conn.RemoteAddr(), err)
		fmt.Fprint(conn, "HTTP/1.1 400 Bad Request\r\nConnection: close\r\n\r\n")
		return
	}

	select {
	case <-time.After(time.Duration(delay * float64(time.Second))):
	case <-ctx.Done():
		return
	}

	charset := s.Charset
	if charset == "" {
		charset = DefaultCharset
	}
	body := fmt.Sprintf("Waited for %.2f seconds.\n", delay)
	fmt.Fprintf(conn, "HTTP/1.1 200 OK\r\n"+
		"Content-Type: text/plain; charset=%s\r\n"+
		"Content-Length: %d\r\n"+
		"Connection: close\r\n"+
		"\r\n%s", charset, len(body), body)
}

// readRequest parses the request line, extracts the delay from the
// path and drains the remaining request header.
func readRequest(conn net.Conn) (float64, error) {
	r := bufio.NewReader(conn)

	line, err := r.ReadString('\n')
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(line)
	if len(fields) != 3 || fields[0] != "GET" {
		return 0, fmt.Errorf("bad request line %q", strings.TrimSpace(line))
	}

	delay, err := strconv.ParseFloat(strings.TrimPrefix(fields[1], "/"), 64)
	if err != nil || delay < 0 {
		return 0, fmt.Errorf("bad delay in path %q", fields[1])
	}

	for {
		line, err := r.ReadString('\n')
		if err != nil || strings.TrimRight(line, "\r\n") == "" {
			break
		}
	}
	return delay, nil
}
