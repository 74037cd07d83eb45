package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"

	"main/internal/engine"
	"main/internal/model/enum"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/sim"
)

// replay re-applies a recorded session to a fresh engine and verifies
// the book stays consistent at every step. The config must match the
// recording run, seed included, or the books will diverge.
func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config of the recorded run")
	dir := flag.String("dir", "", "Session log directory (default: recorder dir from config)")
	prefix := flag.String("prefix", "", "Session log file prefix (default: session)")
	seed := flag.Int64("seed", 0, "Override the engine seed (0=use config)")
	speed := flag.Float64("speed", 0, "Replay pacing: 0=fast, 1=realtime")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	engineSeed := loaded.Scheduler.Seed
	if *seed != 0 {
		engineSeed = *seed
	}
	if engineSeed == 0 {
		log.Fatalf("recorded run used a wall-clock seed; pass -seed to reproduce the book")
	}
	eng, err := engine.New(loaded.Engine, rand.New(rand.NewSource(engineSeed)))
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}

	sessionDir := *dir
	if sessionDir == "" {
		sessionDir = loaded.Recorder.Dir
	}
	pb, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:        sessionDir,
		FilePrefix: *prefix,
		Speed:      *speed,
	})
	if err != nil {
		log.Fatalf("playback init failed: %v", err)
	}

	var stats struct {
		events   int
		external int
		trades   int
		rejected int
	}

	err = pb.Run(context.Background(), func(ev sim.Event) error {
		stats.events++
		if ev.External {
			stats.external++
		}

		var applyErr error
		switch ev.Op {
		case enum.OpMarket:
			trades, err := eng.ExecuteMarketOrder(enum.TradeSide(ev.Side), ev.Volume)
			stats.trades += len(trades)
			applyErr = err
		case enum.OpLimit:
			trades, err := eng.AddLimitOrder(enum.Side(ev.Side), ev.Price, ev.Volume)
			stats.trades += len(trades)
			applyErr = err
		case enum.OpCancel:
			applyErr = eng.CancelLevel(enum.Side(ev.Side), ev.LevelIndex)
		default:
			return fmt.Errorf("seq %d: unknown op %d", ev.Seq, ev.Op)
		}
		if applyErr != nil {
			stats.rejected++
			fmt.Fprintf(os.Stderr, "seq %d: %s rejected: %v\n", ev.Seq, ev.Op, applyErr)
		}

		if got := eng.Seq(); got != ev.Seq && applyErr == nil {
			return fmt.Errorf("seq diverged: recorded %d, replayed %d", ev.Seq, got)
		}
		return verifyBook(eng, ev.Seq)
	})
	if err != nil {
		log.Fatalf("replay failed: %v", err)
	}

	fmt.Printf("replayed %d events (%d external), %d trades, %d rejected\n",
		stats.events, stats.external, stats.trades, stats.rejected)
	fmt.Printf("final seq %d, last price %s\n",
		eng.Seq(), eng.LastPrice().Text(loaded.Scale))
}

func verifyBook(eng *engine.Engine, seq uint64) error {
	state := eng.Snapshot()
	if bid, ok := state.BestBid(); ok {
		if ask, ok := state.BestAsk(); ok && bid.Price >= ask.Price {
			return fmt.Errorf("seq %d: book crossed, bid %d >= ask %d", seq, bid.Price, ask.Price)
		}
	}
	for i := 1; i < len(state.Bids); i++ {
		if state.Bids[i].Price >= state.Bids[i-1].Price {
			return fmt.Errorf("seq %d: bids out of order at %d", seq, i)
		}
	}
	for i := 1; i < len(state.Asks); i++ {
		if state.Asks[i].Price <= state.Asks[i-1].Price {
			return fmt.Errorf("seq %d: asks out of order at %d", seq, i)
		}
	}
	return nil
}
