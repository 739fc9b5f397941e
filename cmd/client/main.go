package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alarmfox/fetchbench/internal/fbench"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	addr           = flag.String("server-addr", "127.0.0.1:8000", "Address of the delay server")
	delays         = flag.String("delays", "1,5,3,2", "Comma-separated delays in seconds, one per request")
	timeout        = flag.Duration("timeout", fbench.DefaultTimeout, "Per-request timeout, measured from dispatch")
	sequential     = flag.Bool("sequential", false, "Run the batch one request at a time")
	defaultCharset = flag.String("default-charset", fbench.DefaultCharset, "Charset assumed when the server declares none")
	repeat         = flag.Int("repeat", 1, "Number of times to run the batch")
	rate           = flag.Float64("rate", 0, "Mean batches per second for exponentially distributed pauses between repeats (0 = no pause)")
	resultFile     = flag.String("write", "", "File path to write per-request results")
)

type Config struct {
	addr           string
	delays         string
	timeout        time.Duration
	sequential     bool
	defaultCharset string
	repeat         int
	rate           float64
	resultFile     string
}

func main() {
	flag.Parse()

	c := Config{
		addr:           *addr,
		delays:         *delays,
		timeout:        *timeout,
		sequential:     *sequential,
		defaultCharset: *defaultCharset,
		repeat:         *repeat,
		rate:           *rate,
		resultFile:     *resultFile,
	}

	log.Printf("%+v", c)
	if err := run(c); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func run(c Config) error {
	descriptors, err := parseDescriptors(c.addr, c.delays)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	var results *os.File
	if c.resultFile != "" {
		results, err = os.Create(c.resultFile)
		if err != nil {
			return err
		}
		defer results.Close()
	}

	fetcher := fbench.NewFetcher(c.timeout, c.defaultCharset)
	pause := distuv.Exponential{Rate: c.rate}

	for i := 0; i < c.repeat; i++ {
		if i > 0 && c.rate > 0 {
			d := time.Duration(pause.Rand() * float64(time.Second))
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var report fbench.Report
		if c.sequential {
			report, err = fetcher.FetchSequential(ctx, descriptors)
		} else {
			report, err = fetcher.FetchAll(ctx, descriptors)
		}
		if err != nil {
			return err
		}

		for _, result := range report.Results {
			if result.Err != nil {
				log.Printf("fetch %s%s: %v", result.Descriptor.Addr(), result.Descriptor.Path(), result.Err)
				continue
			}
			fmt.Println(result.Body)
		}

		summary := report.Summary()
		fmt.Printf("It took %.2f seconds for a total waiting time of %.2f.\n",
			report.Elapsed.Seconds(), report.SumOfDelays)
		log.Printf("requests=%d failed=%d mean_rtt=%s max_rtt=%s",
			summary.Requests, summary.Failed, summary.MeanRTT, summary.MaxRTT)

		if results != nil {
			if err := writeResults(results, report); err != nil {
				log.Print(err)
			}
		}
	}

	return nil
}

func parseDescriptors(addr, delays string) ([]fbench.Descriptor, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("bad server address %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("bad port %q: %v", portStr, err)
	}

	var descriptors []fbench.Descriptor
	for _, field := range strings.Split(delays, ",") {
		delay, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil || delay < 0 {
			return nil, fmt.Errorf("bad delay %q", field)
		}
		descriptors = append(descriptors, fbench.Descriptor{Host: host, Port: port, Delay: delay})
	}
	return descriptors, nil
}

func writeResults(f *os.File, report fbench.Report) error {
	for _, result := range report.Results {
		errText := ""
		if result.Err != nil {
			errText = result.Err.Error()
		}
		_, err := fmt.Fprintf(f, "%.2f;%d;%s\n",
			result.Descriptor.Delay,
			result.RTT.Microseconds(),
			errText,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
