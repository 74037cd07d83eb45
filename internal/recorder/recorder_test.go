package recorder

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"main/internal/model"
	"main/internal/model/enum"
	"main/internal/sim"
)

func sampleEvents(n int) []sim.Event {
	out := make([]sim.Event, 0, n)
	for i := 0; i < n; i++ {
		ev := sim.Event{
			Seq:      uint64(i + 1),
			Op:       enum.Op(i%3 + 1),
			Side:     uint8(i % 2),
			Price:    model.Price(10000 + i),
			Volume:   model.Quantity(5 + i%20),
			Trades:   i % 4,
			TsMillis: 1700000000000 + int64(i)*150,
			External: i%7 == 0,
		}
		if ev.Op == enum.OpCancel {
			ev.LevelIndex = i % 5
			ev.Price, ev.Volume = 0, 0
		}
		out = append(out, ev)
	}
	return out
}

func writeSession(t *testing.T, dir string, events []sim.Event, segmentBytes int64) {
	t.Helper()
	w, err := NewWriter(Config{Dir: dir, SegmentMaxBytes: segmentBytes})
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	for _, ev := range events {
		require.NoError(t, w.TryLog(ev))
	}
	require.NoError(t, w.Close())
}

func TestWriteAndReplayRoundTrip(t *testing.T) {
	dir := t.TempDir()
	events := sampleEvents(100)
	writeSession(t, dir, events, defaultSegmentMaxBytes)

	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)

	var got []sim.Event
	require.NoError(t, pb.Run(context.Background(), func(ev sim.Event) error {
		got = append(got, ev)
		return nil
	}))
	assert.Equal(t, events, got)
}

func TestSegmentRotation(t *testing.T) {
	dir := t.TempDir()
	events := sampleEvents(40)
	// Ten records per segment.
	writeSession(t, dir, events, recordSize*10)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, len(entries))

	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	var seqs []uint64
	require.NoError(t, pb.Run(context.Background(), func(ev sim.Event) error {
		seqs = append(seqs, ev.Seq)
		return nil
	}))
	require.Len(t, seqs, len(events), "rotation loses no records")
	for i := 1; i < len(seqs); i++ {
		assert.Greater(t, seqs[i], seqs[i-1])
	}
}

func TestReaderDetectsCorruption(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, sampleEvents(3), defaultSegmentMaxBytes)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	path := filepath.Join(dir, entries[0].Name())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[recordSize+20] ^= 0xff // flip a byte in the second record
	require.NoError(t, os.WriteFile(path, data, 0o644))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	r := NewReader(file)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestReaderTruncatedTail(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, sampleEvents(2), defaultSegmentMaxBytes)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	path := filepath.Join(dir, entries[0].Name())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data[:len(data)-10], 0o644))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	r := NewReader(file)
	_, err = r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrTruncatedRecord)
}

func TestTryLogLifecycle(t *testing.T) {
	w, err := NewWriter(Config{Dir: t.TempDir()})
	require.NoError(t, err)

	assert.ErrorIs(t, w.TryLog(sim.Event{}), ErrNotStarted)

	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), ErrAlreadyStarted)
	require.NoError(t, w.TryLog(sim.Event{Seq: 1, Op: enum.OpMarket}))

	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.TryLog(sim.Event{}), ErrClosed)
}

type fakeClock struct{ slept []time.Duration }

func (f *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	return nil
}

func TestPlaybackPacing(t *testing.T) {
	dir := t.TempDir()
	events := []sim.Event{
		{Seq: 1, Op: enum.OpMarket, TsMillis: 1000},
		{Seq: 2, Op: enum.OpLimit, TsMillis: 1300},
		{Seq: 3, Op: enum.OpCancel, TsMillis: 1400},
	}
	writeSession(t, dir, events, defaultSegmentMaxBytes)

	clock := &fakeClock{}
	pb, err := NewPlayback(PlaybackConfig{Dir: dir, Speed: 2})
	require.NoError(t, err)
	pb.WithClock(clock)

	count := 0
	require.NoError(t, pb.Run(context.Background(), func(sim.Event) error {
		count++
		return nil
	}))
	require.Equal(t, 3, count)
	assert.Equal(t, []time.Duration{150 * time.Millisecond, 50 * time.Millisecond}, clock.slept)
}

func TestPlaybackEmptyDir(t *testing.T) {
	pb, err := NewPlayback(PlaybackConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, pb.Run(context.Background(), func(sim.Event) error {
		t.Fatal("no events expected")
		return nil
	}))
}

func TestPlaybackHandlerError(t *testing.T) {
	dir := t.TempDir()
	writeSession(t, dir, sampleEvents(5), defaultSegmentMaxBytes)

	pb, err := NewPlayback(PlaybackConfig{Dir: dir})
	require.NoError(t, err)
	wantErr := io.ErrClosedPipe
	err = pb.Run(context.Background(), func(ev sim.Event) error {
		if ev.Seq == 3 {
			return wantErr
		}
		return nil
	})
	assert.ErrorIs(t, err, wantErr)
}
