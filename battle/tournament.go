package battle

import (
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/corewars/drq/redcode"
)

// Stats is one warrior's round-robin tournament record.
type Stats struct {
	Wins   int
	Losses int
	Draws  int
	Points float64
}

// match is one pairing's outcome, computed independently so the
// round-robin can run concurrently across pairs.
type match struct {
	i, j   int
	winner int // index into {i, j}, or -1 for a draw
}

// RunTournament plays every pair of warriors head-to-head for
// roundsPerMatch rounds each, scoring 3/1/0 points per win/draw/loss,
// and returns each warrior's aggregate Stats keyed by its index into
// warriors. Matches are independent pure functions of their inputs, so
// they run concurrently; each goroutine gets its own Battle and random
// source seeded off rng to avoid any shared mutable state.
func RunTournament(cfg Config, rng *rand.Rand, warriors []*redcode.Warrior, roundsPerMatch int) []Stats {
	n := len(warriors)
	stats := make([]Stats, n)

	var pairs []match
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			pairs = append(pairs, match{i: i, j: j})
		}
	}
	results := make([]match, len(pairs))

	matchCfg := cfg
	matchCfg.NumRounds = roundsPerMatch

	var g errgroup.Group
	for idx, p := range pairs {
		idx, p := idx, p
		matchRNG := rand.New(rand.NewSource(rng.Int63()))
		g.Go(func() error {
			b := New(matchCfg, matchRNG)
			result := b.Run([]*redcode.Warrior{warriors[p.i], warriors[p.j]})
			winner := -1
			if !result.IsDraw {
				winner = result.WinnerID
			}
			results[idx] = match{i: p.i, j: p.j, winner: winner}
			return nil
		})
	}
	// Battles are pure CPU-bound functions of their inputs and every
	// goroutine returns nil, so Wait's error is always nil; it is called
	// only to wait for every match to finish.
	_ = g.Wait()

	for _, r := range results {
		switch r.winner {
		case 0:
			stats[r.i].Wins++
			stats[r.j].Losses++
			stats[r.i].Points += 3.0
		case 1:
			stats[r.j].Wins++
			stats[r.i].Losses++
			stats[r.j].Points += 3.0
		default:
			stats[r.i].Draws++
			stats[r.j].Draws++
			stats[r.i].Points += 1.0
			stats[r.j].Points += 1.0
		}
	}
	return stats
}
