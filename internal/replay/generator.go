package replay

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/riftcoach/insight/internal/domain/types"
	"github.com/riftcoach/insight/internal/matchfixture"
)

const rosterSize = 10

// Generator builds reproducible synthetic matches over a fixed player pool.
type Generator struct {
	rng   *rand.Rand
	pool  []string
	start time.Time
}

// NewGenerator creates a pool of players puuids. players below ten is
// raised to ten so every match has a full roster.
func NewGenerator(players int, seed uint64) *Generator {
	players = max(players, rosterSize)
	pool := make([]string, players)
	for i := range pool {
		pool[i] = uuid.New().String()
	}
	return &Generator{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		pool:  pool,
		start: time.Now().UTC().Add(-time.Duration(players) * 24 * time.Hour).Truncate(time.Hour),
	}
}

// Pool returns the generated player ids.
func (g *Generator) Pool() []string {
	return append([]string(nil), g.pool...)
}

// Generate returns n matches. Match i starts one hour after match i-1 so
// progress history has a stable order.
func (g *Generator) Generate(n int) []Submission {
	out := make([]Submission, n)
	for i := range out {
		out[i] = g.match(i)
	}
	return out
}

func (g *Generator) match(i int) Submission {
	id := "REPLAY_" + uuid.New().String()[:8]
	version := "2"
	if g.rng.IntN(4) == 0 {
		version = "1"
	}
	b := matchfixture.New(version, id).
		StartedAt(g.start.Add(time.Duration(i) * time.Hour)).
		Duration(time.Duration(20+g.rng.IntN(20)) * time.Minute)
	if g.rng.IntN(2) == 0 {
		b.Winner(matchfixture.Red)
	}

	picked := g.rng.Perm(len(g.pool))[:rosterSize]
	participants := make([]string, rosterSize)
	for n, idx := range picked {
		team := matchfixture.Blue
		if n >= len(types.Roles) {
			team = matchfixture.Red
		}
		participants[n] = g.pool[idx]
		b.Player(matchfixture.Player{
			PUUID:  g.pool[idx],
			Name:   fmt.Sprintf("Replay%d", idx),
			Team:   team,
			Role:   types.Roles[n%len(types.Roles)],
			Vision: float64(5 + g.rng.IntN(40)),
		})
	}
	g.events(b)

	return Submission{MatchID: id, Participants: participants, Body: b.JSON()}
}

// events scatters kills, wards and objectives over the first twenty minutes.
func (g *Generator) events(b *matchfixture.Builder) {
	at := func() time.Duration {
		return time.Duration(60+g.rng.IntN(19*60)) * time.Second
	}
	blue := func() int { return 1 + g.rng.IntN(5) }
	red := func() int { return 6 + g.rng.IntN(5) }

	for range 4 + g.rng.IntN(8) {
		if g.rng.IntN(2) == 0 {
			b.Kill(at(), blue(), red())
		} else {
			b.Kill(at(), red(), blue())
		}
	}
	for range g.rng.IntN(12) {
		b.Ward(at(), 1+g.rng.IntN(rosterSize))
	}
	if g.rng.IntN(3) > 0 {
		b.Monster(at(), blue(), matchfixture.Blue, "DRAGON")
	} else {
		b.Monster(at(), red(), matchfixture.Red, "DRAGON")
	}
}
