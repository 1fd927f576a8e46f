package assistant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacerFirstCallGoesThrough(t *testing.T) {
	clock := newFakeClock(base)
	p := NewPacer(500*time.Millisecond, clock, clock.Sleep)

	waited, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
	assert.Empty(t, clock.Sleeps())
}

func TestPacerDelaysBackToBackCalls(t *testing.T) {
	clock := newFakeClock(base)
	p := NewPacer(500*time.Millisecond, clock, clock.Sleep)

	_, err := p.Wait(context.Background())
	require.NoError(t, err)

	waited, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, waited)
	assert.Equal(t, base.Add(500*time.Millisecond), clock.Now())
}

func TestPacerWaitsOnlyTheRemainder(t *testing.T) {
	clock := newFakeClock(base)
	p := NewPacer(500*time.Millisecond, clock, clock.Sleep)

	_, _ = p.Wait(context.Background())
	clock.Advance(200 * time.Millisecond)

	waited, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, float64(300*time.Millisecond), float64(waited), float64(time.Millisecond))

	clock.Advance(time.Second)
	waited, err = p.Wait(context.Background())
	require.NoError(t, err)
	assert.Zero(t, waited)
}

func TestPacerQueuesCallers(t *testing.T) {
	// sleeps are recorded but the clock stays put, like callers arriving together
	clock := newFakeClock(base)
	var delays []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	p := NewPacer(500*time.Millisecond, clock, sleep)

	for i := 0; i < 3; i++ {
		_, err := p.Wait(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second}, delays)
}

func TestPacerCancelled(t *testing.T) {
	clock := newFakeClock(base)
	p := NewPacer(500*time.Millisecond, clock, clock.Sleep)
	_, _ = p.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPacerZeroInterval(t *testing.T) {
	clock := newFakeClock(base)
	p := NewPacer(0, clock, clock.Sleep)
	for i := 0; i < 5; i++ {
		waited, err := p.Wait(context.Background())
		require.NoError(t, err)
		assert.Zero(t, waited)
	}
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))
}
