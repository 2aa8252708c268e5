package adc

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultConversionPeriod is the re-sampling period used when none is given.
const DefaultConversionPeriod = time.Millisecond

// Continuous emulates continuous conversion mode with a circular single-element transfer:
// it keeps converting and storing every result into its Register, which readers poll
// through Latest.
type Continuous struct {
	conv   Converter
	clk    clock.Clock
	period time.Duration
	reg    Register
}

// NewContinuous creates a continuous converter. A nil clock uses the wall clock and a
// non-positive period uses DefaultConversionPeriod.
func NewContinuous(conv Converter, clk clock.Clock, period time.Duration) *Continuous {
	if clk == nil {
		clk = clock.New()
	}
	if period <= 0 {
		period = DefaultConversionPeriod
	}

	return &Continuous{
		conv:   conv,
		clk:    clk,
		period: period,
	}
}

// Run converts once immediately and then once per period until ctx is done.
func (c *Continuous) Run(ctx context.Context) error {
	ticker := c.clk.Ticker(c.period)
	defer ticker.Stop()

	c.reg.Store(c.conv.Convert())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.reg.Store(c.conv.Convert())
		}
	}
}

// Start runs the conversion loop in a goroutine.
func (c *Continuous) Start(ctx context.Context) {
	go c.Run(ctx)
}

// Latest returns the most recent conversion.
func (c *Continuous) Latest() Sample {
	return c.reg.Latest()
}

// Period returns the conversion period.
func (c *Continuous) Period() time.Duration {
	return c.period
}
