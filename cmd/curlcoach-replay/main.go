package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/meltforce/curlcoach/internal/replay"
	"github.com/meltforce/curlcoach/internal/tracker"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	tracePath := flag.String("trace", "", "path to JSON Lines pose trace")
	serverURL := flag.String("server", "", "CurlCoach server URL; empty replays offline")
	apiKey := flag.String("api-key", os.Getenv("CURLCOACH_AUTH_API_KEY"), "server API key (default $CURLCOACH_AUTH_API_KEY)")
	preset := flag.String("preset", "", "server preset to start the session from")
	pace := flag.Bool("pace", true, "remote mode: wait between frames as recorded")
	reps := flag.Int("reps", 0, "offline mode: target reps per arm (0 = default)")
	sets := flag.Int("sets", 0, "offline mode: target sets (0 = default)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("curlcoach-replay", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *tracePath == "" {
		fmt.Fprintf(os.Stderr, "Usage: curlcoach-replay -trace <file.jsonl> [-server URL -api-key KEY [-preset NAME]] [-reps N -sets N]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	f, err := os.Open(*tracePath)
	if err != nil {
		log.Error("opening trace", "error", err)
		os.Exit(1)
	}
	lines, err := replay.ReadTrace(f)
	f.Close()
	if err != nil {
		log.Error("reading trace", "path", *tracePath, "error", err)
		os.Exit(1)
	}
	log.Info("trace loaded", "path", *tracePath, "frames", len(lines))

	if *serverURL == "" {
		cfg := tracker.DefaultConfig()
		if *reps > 0 {
			cfg.TargetReps = *reps
		}
		if *sets > 0 {
			cfg.TargetSets = *sets
		}
		res, err := replay.Run(lines, cfg)
		if err != nil {
			log.Error("offline replay failed", "error", err)
			os.Exit(1)
		}
		for _, tr := range res.Transitions {
			log.Info("transition", "line", tr.Line, "at", tr.At, "events", tr.Events, "instruction", tr.State.Instruction)
		}
		printState(res.Final)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := replay.NewClient(*serverURL, *apiKey)
	id, err := client.CreateSession(ctx, *preset)
	if err != nil {
		log.Error("creating session", "error", err)
		os.Exit(1)
	}
	log.Info("session created", "session", id)

	last, err := client.Stream(ctx, id, lines, *pace, func(line int, u replay.Update) {
		if len(u.Events) > 0 {
			log.Info("transition", "line", line, "events", u.Events, "instruction", u.State.Instruction)
		}
	})
	if err != nil {
		log.Error("remote replay failed", "session", id, "error", err)
		os.Exit(1)
	}
	printState(last.State)
}

func printState(s tracker.Snapshot) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(s)
}
