package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/alarmfox/fetchbench/internal/fbench"
	"github.com/shirou/gopsutil/load"
	"golang.org/x/sync/errgroup"
)

var (
	addr         = flag.String("listen-addr", "127.0.0.1:8000", "Listen address for the delay server")
	charset      = flag.String("charset", "UTF-8", "Charset announced in Content-Type")
	loadInterval = flag.Duration("load-interval", 0, "Period to log the system load average (0 disables)")
)

type Config struct {
	addr         string
	charset      string
	loadInterval time.Duration
}

func main() {
	flag.Parse()

	c := Config{
		addr:         *addr,
		charset:      *charset,
		loadInterval: *loadInterval,
	}

	log.Printf("%+v", c)
	if err := run(c); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func run(c Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		server := &fbench.Server{Charset: c.charset}
		return server.Start(ctx, c.addr)
	})

	if c.loadInterval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(c.loadInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					avg, err := load.Avg()
					if err != nil {
						log.Print(err)
						continue
					}
					log.Printf("load: %s", avg.String())
				}
			}
		})
	}

	return g.Wait()
}
