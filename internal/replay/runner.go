package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/riftcoach/insight/pkg/logger"
)

// ErrInconsistent reports progress history that does not match what was
// delivered.
var ErrInconsistent = errors.New("replay: progress history inconsistent")

const (
	directoryPermission = 0o750
	pollInterval        = 200 * time.Millisecond
)

// Run executes a complete replay against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("replay")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting replay",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("matches", cfg.Matches),
		logger.Float64("redeliver", cfg.Redeliver),
		logger.Int("workers", cfg.Workers),
		logger.Float64("rate", cfg.Rate))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	gen := NewGenerator(cfg.Players, cfg.Seed)
	subs := gen.Generate(cfg.Matches)
	stats.MatchesGenerated = len(subs)

	if cfg.OutputFile != "" {
		if err := saveSubmissions(cfg.OutputFile, subs); err != nil {
			log.Warn(ctx, "failed to save matches", logger.Error(err))
		}
	}

	accepted, err := submit(ctx, cfg, client, deliveries(subs, cfg.Redeliver), stats)
	if err != nil {
		return stats, fmt.Errorf("submission failed: %w", err)
	}

	if err := settle(ctx, client, cfg.Settle); err != nil {
		log.Warn(ctx, "progress queue did not settle", logger.Error(err))
	}

	verr := verify(ctx, cfg, client, gen.Pool(), accepted, stats)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, verr
}

// deliveries appends a second copy of the first fraction of subs. The
// copies are posted last so they race the progress workers.
func deliveries(subs []Submission, fraction float64) []Submission {
	fraction = math.Min(math.Max(fraction, 0), 1)
	n := int(math.Round(fraction * float64(len(subs))))
	out := make([]Submission, 0, len(subs)+n)
	out = append(out, subs...)
	return append(out, subs[:n]...)
}

// submit posts every delivery and returns the matches the service accepted.
func submit(ctx context.Context, cfg *Config, client *HTTPClient, subs []Submission, stats *Stats) (map[string]Submission, error) {
	log := logger.Get().Named("replay")

	limit := rate.Inf
	if cfg.Rate > 0 {
		limit = rate.Limit(cfg.Rate)
	}
	limiter := rate.NewLimiter(limit, max(1, cfg.Workers))

	var (
		mu       sync.Mutex
		accepted = make(map[string]Submission, len(subs))
		posted   atomic.Int64
		ok       atomic.Int64
		rejected atomic.Int64
		failed   atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	for _, s := range subs {
		if err := limiter.Wait(gctx); err != nil {
			break
		}
		g.Go(func() error {
			posted.Add(1)
			code, _, err := client.Analyze(gctx, s.Body)
			switch {
			case err == nil:
				ok.Add(1)
				mu.Lock()
				accepted[s.MatchID] = s
				mu.Unlock()
			case code != 0:
				rejected.Add(1)
			default:
				failed.Add(1)
			}
			if err != nil && cfg.Verbose {
				log.Warn(gctx, "analyze failed", logger.String("match", s.MatchID), logger.Error(err))
			}
			return nil
		})
	}
	err := g.Wait()

	stats.Posted = int(posted.Load())
	stats.Accepted = int(ok.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())
	if err == nil {
		err = ctx.Err()
	}
	return accepted, err
}

// settle waits until the service reports no pending progress jobs.
func settle(ctx context.Context, client *HTTPClient, d time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		n, err := client.Pending(ctx)
		if err == nil && n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return err
			}
			return fmt.Errorf("%d jobs pending: %w", n, ctx.Err())
		case <-ticker.C:
		}
	}
}

// verify checks that every player holds exactly one entry per accepted
// match they played.
func verify(ctx context.Context, cfg *Config, client *HTTPClient, pool []string, accepted map[string]Submission, stats *Stats) error {
	log := logger.Get().Named("replay")

	want := make(map[string]map[string]bool, len(pool))
	for _, s := range accepted {
		for _, p := range s.Participants {
			if want[p] == nil {
				want[p] = map[string]bool{}
			}
			want[p][s.MatchID] = true
		}
	}

	var mismatches atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, cfg.Workers))
	for _, player := range pool {
		g.Go(func() error {
			got, err := client.MatchIDs(gctx, player)
			if err != nil {
				return fmt.Errorf("progress %s: %w", player, err)
			}
			if msg := compare(want[player], got); msg != "" {
				mismatches.Add(1)
				log.Warn(gctx, "progress mismatch", logger.String("player", player), logger.String("detail", msg))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	stats.PlayersChecked = len(pool)
	stats.Mismatches = int(mismatches.Load())
	if stats.Mismatches > 0 {
		return fmt.Errorf("%w: %d of %d players", ErrInconsistent, stats.Mismatches, len(pool))
	}
	return nil
}

// compare describes the first difference between the expected match set
// and the recorded entry counts, or returns "".
func compare(want map[string]bool, got map[string]int) string {
	for id, n := range got {
		if !want[id] {
			return "unexpected match " + id
		}
		if n != 1 {
			return fmt.Sprintf("match %s recorded %d times", id, n)
		}
	}
	for id := range want {
		if _, ok := got[id]; !ok {
			return "missing match " + id
		}
	}
	return ""
}

// saveSubmissions writes the generated payloads as a JSON array.
func saveSubmissions(filename string, subs []Submission) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	docs := make([]json.RawMessage, len(subs))
	for i, s := range subs {
		docs[i] = s.Body
	}
	b, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("marshal matches: %w", err)
	}
	return os.WriteFile(filename, b, 0o600)
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Posted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("matchesGenerated", stats.MatchesGenerated),
		logger.Int("posted", stats.Posted),
		logger.Int("accepted", stats.Accepted),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("playersChecked", stats.PlayersChecked),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("postsPerSecond", perSecond))
}
