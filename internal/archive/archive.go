// Package archive persists executed trades to PostgreSQL for offline
// analysis. Archival is best effort and fully decoupled from the tick
// loop: trades are queued without blocking and flushed in batches.
package archive

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yanun0323/logs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"main/internal/model"
)

var (
	ErrQueueFull = errors.New("archive queue full")
	ErrClosed    = errors.New("archive writer closed")
)

// TradeRow is the persisted form of an executed trade.
type TradeRow struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement:false"`
	Symbol     string `gorm:"index;size:32"`
	Price      int64
	Volume     int64
	Side       string `gorm:"size:4"`
	Aggressive bool
	Seq        uint64
	TsMillis   int64 `gorm:"index"`
}

// TableName keeps the table name stable across gorm versions.
func (TradeRow) TableName() string { return "trades" }

// Config controls the archive writer.
type Config struct {
	DSN           string
	BatchSize     int
	QueueSize     int
	FlushInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.BatchSize == 0 {
		c.BatchSize = 200
	}
	if c.QueueSize == 0 {
		c.QueueSize = 4096
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = time.Second
	}
	return c
}

// Writer batches trades into PostgreSQL.
type Writer struct {
	cfg    Config
	symbol string
	db     *gorm.DB
	ch     chan TradeRow
	wg     sync.WaitGroup
	closed atomic.Bool
}

// Open connects to PostgreSQL, migrates the trades table and returns a
// writer ready to start.
func Open(cfg Config, symbol string) (*Writer, error) {
	cfg = cfg.withDefaults()
	if cfg.DSN == "" {
		return nil, errors.New("archive dsn is empty")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&TradeRow{}); err != nil {
		return nil, err
	}

	return &Writer{
		cfg:    cfg,
		symbol: symbol,
		db:     db,
		ch:     make(chan TradeRow, cfg.QueueSize),
	}, nil
}

// Start runs the flush loop in a new goroutine.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// TryArchive enqueues executed trades without blocking. Trades that do
// not fit are dropped and reported via the error.
func (w *Writer) TryArchive(seq uint64, trades []model.Trade) error {
	if w.closed.Load() {
		return ErrClosed
	}
	for _, trade := range trades {
		select {
		case w.ch <- rowFromTrade(w.symbol, seq, trade):
		default:
			return ErrQueueFull
		}
	}
	return nil
}

// Close stops the writer, flushes pending rows and closes the pool.
func (w *Writer) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(w.ch)
	w.wg.Wait()

	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (w *Writer) run(ctx context.Context) {
	batch := make([]TradeRow, 0, w.cfg.BatchSize)
	ticker := time.NewTicker(w.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := w.db.CreateInBatches(batch, w.cfg.BatchSize).Error; err != nil {
			logs.Errorf("archive flush failed, %d trades lost, err: %+v", len(batch), err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case row, ok := <-w.ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, row)
			if len(batch) >= w.cfg.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func rowFromTrade(symbol string, seq uint64, trade model.Trade) TradeRow {
	return TradeRow{
		ID:         trade.ID,
		Symbol:     symbol,
		Price:      int64(trade.Price),
		Volume:     int64(trade.Volume),
		Side:       trade.Side.String(),
		Aggressive: trade.Aggressive,
		Seq:        seq,
		TsMillis:   trade.TsMillis,
	}
}
