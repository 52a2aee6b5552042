// Command replay posts synthetic matches to a running insight server and
// verifies the recorded progress history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/riftcoach/insight/internal/replay"
	"github.com/riftcoach/insight/pkg/logger"
)

// Default configuration constants.
const (
	defaultPlayers   = 50
	defaultMatches   = 200
	defaultRedeliver = 0.2
	defaultWorkers   = 2 // multiplier for runtime.NumCPU()
	defaultTimeout   = 30 * time.Second
	defaultSettle    = 30 * time.Second
	defaultRunLimit  = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the service")
		players   = flag.Int("players", defaultPlayers, "Size of the player pool (minimum 10)")
		matches   = flag.Int("matches", defaultMatches, "Number of distinct matches to post")
		redeliver = flag.Float64("redeliver", defaultRedeliver, "Fraction of matches posted twice")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		rps       = flag.Float64("rate", 0, "Requests per second (0 = unlimited)")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle    = flag.Duration("settle", defaultSettle, "How long to wait for progress workers")
		seed      = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for match contents")
		output    = flag.String("output", "", "Write generated matches to this JSON file")
		format    = flag.String("log-format", "text", "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log every failed request")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*format)); err != nil {
		fmt.Fprintln(os.Stderr, "failed to setup logging:", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunLimit)
	defer cancel()

	cfg := &replay.Config{
		BaseURL:    *baseURL,
		Players:    *players,
		Matches:    *matches,
		Redeliver:  *redeliver,
		Workers:    *workers,
		Rate:       *rps,
		Timeout:    *timeout,
		Settle:     *settle,
		Seed:       *seed,
		OutputFile: *output,
		Verbose:    *verbose,
	}

	if _, err := replay.Run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "replay failed:", err)
		if errors.Is(err, replay.ErrInconsistent) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
