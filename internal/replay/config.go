// Package replay drives a running insight server with synthetic matches
// and checks that progress history stays consistent under concurrent and
// repeated delivery.
package replay

import "time"

// Config holds configuration for a replay run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Players    int           // Size of the player pool, at least 10
	Matches    int           // Number of distinct matches to generate
	Redeliver  float64       // Fraction of matches posted a second time
	Workers    int           // Number of concurrent submitters
	Rate       float64       // Requests per second; non-positive means unlimited
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // How long to wait for progress to catch up
	Seed       uint64        // Seed for match contents
	OutputFile string        // Optional file receiving the generated payloads
	Verbose    bool          // Log every failed request
}

// Submission is one generated match ready to post.
type Submission struct {
	MatchID      string   `json:"match_id"`
	Participants []string `json:"participants"`
	Body         []byte   `json:"-"`
}

// Stats holds replay statistics.
type Stats struct {
	MatchesGenerated int
	Posted           int
	Accepted         int
	Rejected         int
	Failed           int
	PlayersChecked   int
	Mismatches       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
