package passlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigreplay/host/monitor"
)

func samplePass(n int, intervals ...uint32) monitor.Pass {
	p := monitor.Pass{Number: n}
	for i, iv := range intervals {
		p.Samples = append(p.Samples, monitor.Sample{Bit: i%2 == 0, Interval: iv})
	}
	return p
}

func TestRecordAndRecent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "passes.db")
	log, err := Open(path)
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	at := time.Unix(1700000000, 42)

	first, err := log.Record(ctx, "/dev/ttyACM0", at, samplePass(1, 0, 500, 1100))
	require.NoError(t, err)
	second, err := log.Record(ctx, "/dev/ttyACM0", at.Add(time.Second), samplePass(2, 0, 510, 1090))
	require.NoError(t, err)
	assert.Greater(t, second, first)

	entries, err := log.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, second, entries[0].ID, "newest first")
	assert.Equal(t, 2, entries[0].Pass.Number)
	assert.Equal(t, samplePass(1, 0, 500, 1100).Samples, entries[1].Pass.Samples)
	assert.Equal(t, "/dev/ttyACM0", entries[1].Device)
	assert.True(t, entries[1].At.Equal(at))
}

func TestRecentLimit(t *testing.T) {
	log, err := Open(filepath.Join(t.TempDir(), "passes.db"))
	require.NoError(t, err)
	defer log.Close()

	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := log.Record(ctx, "dev", time.Now(), samplePass(i, 0, 10))
		require.NoError(t, err)
	}

	entries, err := log.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Pass.Number)
}

func TestHistorySurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passes.db")
	ctx := context.Background()

	log, err := Open(path)
	require.NoError(t, err)
	_, err = log.Record(ctx, "dev", time.Now(), samplePass(1, 0, 250))
	require.NoError(t, err)
	require.NoError(t, log.Close())

	log, err = Open(path)
	require.NoError(t, err)
	defer log.Close()

	entries, err := log.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMatches(t *testing.T) {
	ref := samplePass(1, 0, 500, 1100)

	assert.True(t, Matches(ref, samplePass(2, 0, 510, 1090), 10))
	assert.False(t, Matches(ref, samplePass(2, 0, 520, 1100), 10))
	assert.False(t, Matches(ref, samplePass(2, 0, 500), 10), "length differs")

	flipped := samplePass(2, 0, 500, 1100)
	flipped.Samples[1].Bit = !flipped.Samples[1].Bit
	assert.False(t, Matches(ref, flipped, 1000))
}
