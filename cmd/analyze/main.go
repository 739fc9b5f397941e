package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

var (
	inputDirectory = flag.String("input-directory", "", "Directory of result files written by the client")
	outputFile     = flag.String("output-file", "", "Output file (stdout when empty)")
	concurrency    = flag.Uint("concurrency", 1, "Number of files to analyze concurrently")
)

var header = []string{
	"file",
	"requests",
	"failed",
	"mean_rtt_us",
	"max_rtt_us",
}

type Config struct {
	inputDirectory string
	outputFile     string
	concurrency    uint
}

type Record struct {
	file      string
	requests  int
	failed    int
	meanRttUs float64
	maxRttUs  int64
}

func main() {
	flag.Parse()

	c := Config{
		inputDirectory: *inputDirectory,
		outputFile:     *outputFile,
		concurrency:    *concurrency,
	}

	if err := run(c); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal(err)
	}
}

func run(c Config) error {
	directory, err := os.ReadDir(c.inputDirectory)
	if err != nil {
		return err
	}

	var inFiles []string
	for _, content := range directory {
		if !content.IsDir() && content.Type().IsRegular() {
			inFiles = append(inFiles, filepath.Join(c.inputDirectory, content.Name()))
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	files := make(chan string, len(inFiles))
	records := make(chan Record, len(inFiles))

	done := make(chan struct{}, c.concurrency)
	defer close(done)

	g.Go(func() error {
		for _, file := range inFiles {
			files <- file
		}
		close(files)
		return nil
	})

	g.Go(func() error {
		defer close(records)
		for i := 0; i < int(c.concurrency); i++ {
			g.Go(func() error {
				for file := range files {
					if err := process(ctx, file, records); err != nil {
						log.Print(err)
					}
				}
				done <- struct{}{}
				return nil
			})
		}
		for i := 0; i < int(c.concurrency); i++ {
			<-done
		}
		return nil
	})

	g.Go(func() error {
		var writer io.Writer
		if c.outputFile != "" {
			f, err := os.Create(c.outputFile)
			if err != nil {
				return err
			}
			defer f.Close()
			writer = f
		} else {
			writer = os.Stdout
		}
		csvWriter := csv.NewWriter(writer)
		csvWriter.Comma = ';'
		defer csvWriter.Flush()

		csvWriter.Write(header)
		for record := range records {
			row := []string{
				record.file,
				strconv.Itoa(record.requests),
				strconv.Itoa(record.failed),
				fmt.Sprintf("%f", record.meanRttUs),
				strconv.FormatInt(record.maxRttUs, 10),
			}
			if err := csvWriter.Write(row); err != nil {
				log.Print(err)
			}
		}
		return nil
	})

	return g.Wait()
}

func process(ctx context.Context, file string, records chan<- Record) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("cannot open %q: %v", file, err)
	}
	defer f.Close()

	record := Record{file: filepath.Base(file)}
	var rtts []float64

	r := bufio.NewScanner(f)
	for r.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
			rtt, failed, err := parseRow(r.Text())
			if err != nil {
				log.Print(err)
				continue
			}

			record.requests++
			if failed {
				record.failed++
				continue
			}
			rtts = append(rtts, float64(rtt))
			if rtt > record.maxRttUs {
				record.maxRttUs = rtt
			}
		}
	}
	if err := r.Err(); err != nil {
		return err
	}

	if len(rtts) > 0 {
		record.meanRttUs = stat.Mean(rtts, nil)
	}
	records <- record
	return nil
}

func parseRow(row string) (int64, bool, error) {
	parts := strings.Split(row, ";")
	if len(parts) != 3 {
		return 0, false, fmt.Errorf("bad line: %s", row)
	}

	rtt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, false, err
	}

	return rtt, parts[2] != "", nil
}
