package main

import (
	"context"
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/grafana/pyroscope-go"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"main/internal/archive"
	"main/internal/bus"
	"main/internal/engine"
	"main/internal/gateway"
	"main/internal/model"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/sim"
)

func main() {
	configPath := flag.String("config", "config.json", "Path to JSON config")
	autostart := flag.Bool("autostart", true, "Start the simulation immediately")
	flag.Parse()

	loaded, err := ops.Load(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := run(loaded, *autostart); err != nil {
		log.Fatalf("simd failed: %v", err)
	}
}

func run(loaded ops.Loaded, autostart bool) error {
	if loaded.Profiling.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "market-sim",
			ServerAddress:   loaded.Profiling.ServerAddress,
			Tags: map[string]string{
				"symbol": loaded.Engine.Symbol,
			},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return err
		}
		defer func() { _ = profiler.Stop() }()
	}

	seed := loaded.Scheduler.Seed
	if seed == 0 {
		seed = time.Now().UTC().UnixNano()
		loaded.Scheduler.Seed = seed
	}
	eng, err := engine.New(loaded.Engine, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}
	logs.Infof("engine seeded, symbol %s, seed %d", eng.Symbol(), seed)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := obs.NewMetrics()
	states := bus.NewBroadcaster(loaded.Gateway.SnapshotQueue, metrics.IncPublishDrop)
	defer states.Close()

	var eventLog *recorder.Writer
	if loaded.Recorder.Enabled {
		eventLog, err = recorder.NewWriter(recorder.Config{
			Dir:             loaded.Recorder.Dir,
			SegmentMaxBytes: loaded.Recorder.SegmentBytes,
			QueueSize:       loaded.Recorder.QueueSize,
			FlushInterval:   time.Second,
		})
		if err != nil {
			return err
		}
		if err := eventLog.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := eventLog.Close(); err != nil {
				logs.Errorf("session log close, err: %+v", err)
			}
		}()
	}

	publish := func(state model.MarketState) { _ = states.Publish(state) }
	onEvent := func(ev sim.Event) {
		if eventLog == nil {
			return
		}
		if err := eventLog.TryLog(ev); err != nil {
			logs.Errorf("session log append, err: %+v", err)
		}
	}

	sched, err := sim.New(loaded.Scheduler, eng, metrics, publish, onEvent)
	if err != nil {
		return err
	}
	defer sched.Stop()

	if loaded.Archive.Enabled {
		trades, err := archive.Open(archive.Config{
			DSN:       loaded.Archive.DSN,
			BatchSize: loaded.Archive.BatchSize,
		}, eng.Symbol())
		if err != nil {
			return err
		}
		trades.Start(ctx)
		defer func() {
			if err := trades.Close(); err != nil {
				logs.Errorf("archive close, err: %+v", err)
			}
		}()
		go archiveTrades(ctx, states, trades)
	}

	server := gateway.NewServer(gateway.Config{
		Addr:  loaded.Gateway.Addr,
		Scale: loaded.Scale,
	}, sched, states, metrics)
	server.Prime(eng.Snapshot())

	if autostart {
		if err := sched.Start(ctx); err != nil {
			return err
		}
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Start(ctx) }()

	select {
	case <-sys.Shutdown():
		logs.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logs.Errorf("gateway shutdown, err: %+v", err)
	}
	sched.Stop()

	snapshot := metrics.Snapshot()
	logs.Infof("session summary: ops %v, trades %d, external orders %d, publish drops %d, apply avg %s",
		snapshot.OpCounts, snapshot.TradesExecuted, snapshot.ExternalOrders,
		snapshot.PublishDrops, snapshot.ApplyLatency.Avg)
	return nil
}

// archiveTrades tails the snapshot stream and persists trades it has
// not seen before. The tape is newest first and bounded, so under
// extreme load the oldest unseen trades of a burst can be missed; the
// archive is best effort.
func archiveTrades(ctx context.Context, states *bus.Broadcaster, trades *archive.Writer) {
	ch, cancel := states.Subscribe()
	defer cancel()

	var lastID uint64
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-ch:
			if !ok {
				return
			}
			fresh := make([]model.Trade, 0, 4)
			for i := len(state.Trades) - 1; i >= 0; i-- {
				if state.Trades[i].ID > lastID {
					fresh = append(fresh, state.Trades[i])
					lastID = state.Trades[i].ID
				}
			}
			if len(fresh) == 0 {
				continue
			}
			if err := trades.TryArchive(state.Seq, fresh); err != nil {
				logs.Errorf("archive enqueue, err: %+v", err)
			}
		}
	}
}
