// Command drq is a minimal CLI over the MARS executor, the battle
// runner and the Digital Red Queen evolution loop.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/corewars/drq/battle"
	"github.com/corewars/drq/llm"
	"github.com/corewars/drq/redcode"
	"github.com/corewars/drq/redqueen"
)

func main() {
	flag.Parse()
	defer glog.Flush()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	var err error
	switch flag.Arg(0) {
	case "demo":
		err = runDemo()
	case "tournament":
		err = runTournament()
	case "evolve":
		err = runEvolve()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		glog.Errorf("%s: %v", flag.Arg(0), err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: drq <demo|tournament|evolve> [flags]")
}

// runDemo battles Imp against Dwarf once and prints the outcome.
func runDemo() error {
	cfg := battle.DefaultConfig()
	rng := rand.New(rand.NewSource(1))
	b := battle.New(cfg, rng)

	result := b.Run([]*redcode.Warrior{redcode.Imp(), redcode.Dwarf()})
	fmt.Printf("winner: %s (cycles=%d)\n", result.WinnerName(), result.Cycles)
	return nil
}

// runTournament round-robins the bundled classic warriors against one
// another and prints each warrior's win/loss/draw record.
func runTournament() error {
	fs := flag.NewFlagSet("tournament", flag.ExitOnError)
	rounds := fs.Int("rounds", 3, "rounds per match")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}

	classics := redcode.Classics()
	warriors := make([]*redcode.Warrior, 0, len(classics))
	names := make([]string, 0, len(classics))
	for name, w := range classics {
		warriors = append(warriors, w)
		names = append(names, name)
	}

	cfg := battle.DefaultConfig()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	stats := battle.RunTournament(cfg, rng, warriors, *rounds)

	for i, s := range stats {
		fmt.Printf("%-10s wins=%d losses=%d draws=%d points=%.1f\n", names[i], s.Wins, s.Losses, s.Draws, s.Points)
	}
	return nil
}

// runEvolve runs a Digital Red Queen evolution using the local,
// network-free provider so the command is runnable without any
// external LLM credentials configured.
func runEvolve() error {
	fs := flag.NewFlagSet("evolve", flag.ExitOnError)
	rounds := fs.Int("rounds", 3, "number of DRQ rounds")
	generations := fs.Int("generations", 10, "generations of MAP-Elites per round")
	outputDir := fs.String("output", "./drq_output", "directory for round/run artifacts")
	if err := fs.Parse(flag.Args()[1:]); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	templates := make([]string, 0)
	for _, w := range redcode.Classics() {
		templates = append(templates, w.String())
	}
	provider := llm.NewLocalProvider(rng, templates)

	cfg := redqueen.DefaultDRQConfig()
	cfg.NumRounds = *rounds
	cfg.GenerationsPerRound = *generations
	cfg.OutputDir = *outputDir

	controller := redqueen.NewController(provider, cfg, nil, rng)
	runID := time.Now().Format("20060102_150405")

	champions, err := controller.Run(context.Background(), runID)
	if err != nil {
		return err
	}
	for i, champion := range champions {
		fmt.Printf("round %d champion: %s\n", i, champion.Name)
	}
	return nil
}
