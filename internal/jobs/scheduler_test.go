package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobs struct {
	mu         sync.Mutex
	regens     int
	rotations  int
	awards     int
	count      int
	multiplier decimal.Decimal
	err        error
}

func (f *fakeJobs) RegenerateEnergy(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regens++
	return 3, f.err
}

func (f *fakeJobs) RotateDaily(_ context.Context, count int, multiplier decimal.Decimal) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotations++
	f.count = count
	f.multiplier = multiplier
	return count, f.err
}

func (f *fakeJobs) AwardTopPlayers(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.awards++
	return 1, f.err
}

func testConfig() Config {
	return Config{
		Location:              time.UTC,
		EnergyRegenSchedule:   "@every 1m",
		DailyRotationSchedule: "5 0 * * *",
		TopPlayersSchedule:    "*/15 * * * *",
		DailyQuestCount:       3,
		DailyMultiplier:       decimal.NewFromInt(2),
	}
}

func TestStart_RotatesDailyImmediately(t *testing.T) {
	f := &fakeJobs{}
	s := NewScheduler(testConfig(), f, f, f)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()

	assert.Equal(t, 1, f.rotations)
	assert.Equal(t, 3, f.count)
	assert.True(t, f.multiplier.Equal(decimal.NewFromInt(2)))
	assert.Len(t, s.cron.Entries(), 3)
}

func TestStart_BadSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.TopPlayersSchedule = "каждый час"
	s := NewScheduler(cfg, &fakeJobs{}, &fakeJobs{}, &fakeJobs{})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "топ игроков")
}

func TestStart_EmptyScheduleDisablesJob(t *testing.T) {
	cfg := testConfig()
	cfg.EnergyRegenSchedule = ""
	s := NewScheduler(cfg, &fakeJobs{}, &fakeJobs{}, &fakeJobs{})

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()
	assert.Len(t, s.cron.Entries(), 2)
}

func TestJobs_ErrorsDoNotPanic(t *testing.T) {
	f := &fakeJobs{err: errors.New("db down")}
	s := NewScheduler(testConfig(), f, f, f)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		s.regenerateEnergy(ctx)
		s.rotateDaily(ctx)
		s.awardTopPlayers(ctx)
	})
	assert.Equal(t, 1, f.regens)
	assert.Equal(t, 1, f.rotations)
	assert.Equal(t, 1, f.awards)
}

func TestJobs_NilDependencies(t *testing.T) {
	s := NewScheduler(Config{}, nil, nil, nil)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		s.regenerateEnergy(ctx)
		s.rotateDaily(ctx)
		s.awardTopPlayers(ctx)
	})
	assert.Equal(t, time.UTC, s.cron.Location())
}
