package sim

import (
	"fmt"
	"time"

	"main/internal/model"
)

// Config controls the pace of the synthetic market and the shape of the
// orders it generates.
type Config struct {
	Seed int64

	MinInterval time.Duration
	MaxInterval time.Duration

	MarketWeight int
	LimitWeight  int
	CancelWeight int

	SmallVolumeMax model.Quantity
	LargeVolumeMin model.Quantity
	LargeVolumeMax model.Quantity
	LargeRate      float64

	LimitMaxOffsetTicks int
	LimitMinVolume      model.Quantity
	LimitMaxVolume      model.Quantity

	CancelBestLevels int

	CommandQueueSize int
}

func (c Config) withDefaults() Config {
	if c.MinInterval == 0 {
		c.MinInterval = 100 * time.Millisecond
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = 500 * time.Millisecond
	}
	if c.MarketWeight == 0 && c.LimitWeight == 0 && c.CancelWeight == 0 {
		c.MarketWeight, c.LimitWeight, c.CancelWeight = 30, 40, 30
	}
	if c.SmallVolumeMax == 0 {
		c.SmallVolumeMax = 15
	}
	if c.LargeVolumeMin == 0 {
		c.LargeVolumeMin = 50
	}
	if c.LargeVolumeMax == 0 {
		c.LargeVolumeMax = 150
	}
	if c.LargeRate == 0 {
		c.LargeRate = 0.25
	}
	if c.LimitMaxOffsetTicks == 0 {
		c.LimitMaxOffsetTicks = 5
	}
	if c.LimitMinVolume == 0 {
		c.LimitMinVolume = 5
	}
	if c.LimitMaxVolume == 0 {
		c.LimitMaxVolume = 50
	}
	if c.CancelBestLevels == 0 {
		c.CancelBestLevels = 5
	}
	if c.CommandQueueSize == 0 {
		c.CommandQueueSize = 64
	}
	return c
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.MinInterval <= 0 || c.MaxInterval < c.MinInterval {
		return fmt.Errorf("interval range invalid: %s..%s", c.MinInterval, c.MaxInterval)
	}
	if c.MarketWeight < 0 || c.LimitWeight < 0 || c.CancelWeight < 0 {
		return fmt.Errorf("action weights must be >= 0")
	}
	if c.MarketWeight+c.LimitWeight+c.CancelWeight <= 0 {
		return fmt.Errorf("action weights must sum to > 0")
	}
	if c.SmallVolumeMax <= 0 {
		return fmt.Errorf("smallVolumeMax must be > 0")
	}
	if c.LargeVolumeMin <= 0 || c.LargeVolumeMax < c.LargeVolumeMin {
		return fmt.Errorf("large volume range invalid")
	}
	if c.LargeRate < 0 || c.LargeRate > 1 {
		return fmt.Errorf("largeRate must be between 0 and 1")
	}
	if c.LimitMaxOffsetTicks <= 0 {
		return fmt.Errorf("limitMaxOffsetTicks must be > 0")
	}
	if c.LimitMinVolume <= 0 || c.LimitMaxVolume < c.LimitMinVolume {
		return fmt.Errorf("limit volume range invalid")
	}
	if c.CancelBestLevels <= 0 {
		return fmt.Errorf("cancelBestLevels must be > 0")
	}
	if c.CommandQueueSize <= 0 {
		return fmt.Errorf("commandQueueSize must be > 0")
	}
	return nil
}
