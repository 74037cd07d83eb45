package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/yanun0323/decimal"

	"main/internal/engine"
	"main/internal/errors"
	"main/internal/model"
	"main/internal/sim"
)

// FileConfig mirrors the JSON config layout. Prices arrive as decimal
// strings and are resolved to scaled integers at load time.
type FileConfig struct {
	Instrument InstrumentConfig `json:"instrument"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Gateway    GatewayConfig    `json:"gateway"`
	Recorder   RecorderConfig   `json:"recorder"`
	Archive    ArchiveConfig    `json:"archive"`
	Profiling  ProfilingConfig  `json:"profiling"`
}

// InstrumentConfig describes the simulated instrument and the initial
// shape of its book.
type InstrumentConfig struct {
	Symbol         string          `json:"symbol"`
	PriceScale     int             `json:"priceScale"`
	TickSize       decimal.Decimal `json:"tickSize"`
	ReferencePrice decimal.Decimal `json:"referencePrice"`
	SeedDepth      int             `json:"seedDepth"`
	SeedMinVolume  int64           `json:"seedMinVolume"`
	SeedMaxVolume  int64           `json:"seedMaxVolume"`
	TapeCapacity   int             `json:"tapeCapacity"`
}

// SchedulerConfig paces the synthetic event stream.
type SchedulerConfig struct {
	Seed          int64 `json:"seed"`
	MinIntervalMs int64 `json:"minIntervalMs"`
	MaxIntervalMs int64 `json:"maxIntervalMs"`

	MarketWeight int `json:"marketWeight"`
	LimitWeight  int `json:"limitWeight"`
	CancelWeight int `json:"cancelWeight"`

	SmallVolumeMax int64   `json:"smallVolumeMax"`
	LargeVolumeMin int64   `json:"largeVolumeMin"`
	LargeVolumeMax int64   `json:"largeVolumeMax"`
	LargeRate      float64 `json:"largeRate"`

	LimitMaxOffsetTicks int   `json:"limitMaxOffsetTicks"`
	LimitMinVolume      int64 `json:"limitMinVolume"`
	LimitMaxVolume      int64 `json:"limitMaxVolume"`

	CancelBestLevels int `json:"cancelBestLevels"`
}

// GatewayConfig describes the HTTP/websocket listener.
type GatewayConfig struct {
	Addr          string `json:"addr"`
	SnapshotQueue int    `json:"snapshotQueue"`
}

// RecorderConfig describes the session event log.
type RecorderConfig struct {
	Enabled      bool   `json:"enabled"`
	Dir          string `json:"dir"`
	SegmentBytes int64  `json:"segmentBytes"`
	QueueSize    int    `json:"queueSize"`
}

// ArchiveConfig describes the optional trade archive database.
type ArchiveConfig struct {
	Enabled   bool   `json:"enabled"`
	DSN       string `json:"dsn"`
	BatchSize int    `json:"batchSize"`
}

// ProfilingConfig describes the optional pyroscope agent.
type ProfilingConfig struct {
	Enabled       bool   `json:"enabled"`
	ServerAddress string `json:"serverAddress"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Engine    engine.Config
	Scheduler sim.Config
	Scale     int
	Gateway   GatewayConfig
	Recorder  RecorderConfig
	Archive   ArchiveConfig
	Profiling ProfilingConfig
}

// Load reads a JSON config file and resolves it into runtime configs.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrapf(err, "read config %s", path)
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrap(err, "parse config")
	}
	return Resolve(cfg)
}

// Resolve converts the file layout into validated runtime configs.
func Resolve(cfg FileConfig) (Loaded, error) {
	inst := cfg.Instrument
	if inst.Symbol == "" {
		return Loaded{}, fmt.Errorf("instrument symbol is empty")
	}
	scale := inst.PriceScale
	if scale == 0 {
		scale = 2
	}
	if scale < 0 || scale > model.MaxScale {
		return Loaded{}, fmt.Errorf("priceScale out of range: %d", scale)
	}

	tick, err := parsePrice(inst.TickSize, scale)
	if err != nil {
		return Loaded{}, fmt.Errorf("invalid tickSize: %w", err)
	}
	ref, err := parsePrice(inst.ReferencePrice, scale)
	if err != nil {
		return Loaded{}, fmt.Errorf("invalid referencePrice: %w", err)
	}

	engCfg := engine.Config{
		Symbol:         inst.Symbol,
		TickSize:       tick,
		ReferencePrice: ref,
		SeedDepth:      inst.SeedDepth,
		SeedMinVolume:  model.Quantity(inst.SeedMinVolume),
		SeedMaxVolume:  model.Quantity(inst.SeedMaxVolume),
		TapeCapacity:   inst.TapeCapacity,
	}

	sch := cfg.Scheduler
	simCfg := sim.Config{
		Seed:                sch.Seed,
		MinInterval:         time.Duration(sch.MinIntervalMs) * time.Millisecond,
		MaxInterval:         time.Duration(sch.MaxIntervalMs) * time.Millisecond,
		MarketWeight:        sch.MarketWeight,
		LimitWeight:         sch.LimitWeight,
		CancelWeight:        sch.CancelWeight,
		SmallVolumeMax:      model.Quantity(sch.SmallVolumeMax),
		LargeVolumeMin:      model.Quantity(sch.LargeVolumeMin),
		LargeVolumeMax:      model.Quantity(sch.LargeVolumeMax),
		LargeRate:           sch.LargeRate,
		LimitMaxOffsetTicks: sch.LimitMaxOffsetTicks,
		LimitMinVolume:      model.Quantity(sch.LimitMinVolume),
		LimitMaxVolume:      model.Quantity(sch.LimitMaxVolume),
		CancelBestLevels:    sch.CancelBestLevels,
	}

	gw := cfg.Gateway
	if gw.Addr == "" {
		gw.Addr = ":8080"
	}
	if gw.SnapshotQueue == 0 {
		gw.SnapshotQueue = 64
	}

	rec := cfg.Recorder
	if rec.Enabled {
		if rec.Dir == "" {
			return Loaded{}, fmt.Errorf("recorder enabled but dir is empty")
		}
		if rec.SegmentBytes == 0 {
			rec.SegmentBytes = 64 << 20
		}
		if rec.QueueSize == 0 {
			rec.QueueSize = 1024
		}
	}

	ar := cfg.Archive
	if ar.Enabled {
		if ar.DSN == "" {
			return Loaded{}, fmt.Errorf("archive enabled but dsn is empty")
		}
		if ar.BatchSize == 0 {
			ar.BatchSize = 200
		}
	}

	prof := cfg.Profiling
	if prof.Enabled && prof.ServerAddress == "" {
		return Loaded{}, fmt.Errorf("profiling enabled but serverAddress is empty")
	}

	return Loaded{
		Engine:    engCfg,
		Scheduler: simCfg,
		Scale:     scale,
		Gateway:   gw,
		Recorder:  rec,
		Archive:   ar,
		Profiling: prof,
	}, nil
}

func parsePrice(d decimal.Decimal, scale int) (model.Price, error) {
	s := fmt.Sprint(d)
	if s == "" {
		return 0, fmt.Errorf("value is empty")
	}
	v, err := model.ParseScaled(s, scale)
	if err != nil {
		return 0, err
	}
	return model.Price(v), nil
}
