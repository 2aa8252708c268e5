// Package reporter implements the sample-and-transmit loop: read the latest conversion,
// render it as decimal text, write it with a CR/LF terminator, wait a fixed interval.
package reporter

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/itohio/goadc/pkg/adc"
)

const (
	// DefaultInterval is the delay between two reported samples.
	DefaultInterval = time.Second
	// DefaultBanner is written once after initialization.
	DefaultBanner = " Chuong trinh test ADC"
	// LineTerminator ends every line on the wire.
	LineTerminator = "\r\n"
)

// AnalogInput is a polled analog channel. Latest must not block.
type AnalogInput interface {
	Latest() adc.Sample
}

// Config holds the loop parameters.
type Config struct {
	Interval time.Duration
	Banner   string // Empty disables the banner
}

// DefaultConfig returns the firmware defaults.
func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Banner:   DefaultBanner,
	}
}

// Reporter periodically transmits the latest sample of an analog input.
type Reporter struct {
	in  AnalogInput
	out io.Writer
	clk clock.Clock
	cfg Config

	last adc.Sample
	buf  []byte
}

// New creates a Reporter. A nil clock uses the wall clock and a non-positive interval
// uses DefaultInterval.
func New(in AnalogInput, out io.Writer, clk clock.Clock, cfg Config) *Reporter {
	if clk == nil {
		clk = clock.New()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}

	return &Reporter{
		in:  in,
		out: out,
		clk: clk,
		cfg: cfg,
		// "4095\r\n" is the longest line
		buf: make([]byte, 0, 8),
	}
}

// Run writes the banner and then reports samples until ctx is done or a write fails.
func (r *Reporter) Run(ctx context.Context) error {
	if r.cfg.Banner != "" {
		if _, err := io.WriteString(r.out, r.cfg.Banner+LineTerminator); err != nil {
			return fmt.Errorf("failed to write banner: %w", err)
		}
	}

	for {
		if err := r.Step(ctx); err != nil {
			return err
		}
	}
}

// Step reports one sample and waits for the interval to elapse.
func (r *Reporter) Step(ctx context.Context) error {
	r.last = r.in.Latest()
	r.buf = AppendLine(r.buf[:0], r.last)

	// Armed before the write so the line period does not depend on the transmit time
	timer := r.clk.Timer(r.cfg.Interval)
	defer timer.Stop()

	if _, err := r.out.Write(r.buf); err != nil {
		return fmt.Errorf("failed to write sample %d: %w", r.last, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Last returns the sample reported by the most recent Step.
func (r *Reporter) Last() adc.Sample {
	return r.last
}

// Interval returns the configured delay between samples.
func (r *Reporter) Interval() time.Duration {
	return r.cfg.Interval
}

// AppendLine appends the decimal rendering of s and the line terminator to dst.
func AppendLine(dst []byte, s adc.Sample) []byte {
	dst = strconv.AppendUint(dst, uint64(s), 10)
	return append(dst, LineTerminator...)
}

// Format renders s as a base-10 integer without sign or leading zeros.
func Format(s adc.Sample) string {
	return strconv.FormatUint(uint64(s), 10)
}
