package device

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/goadc/pkg/adc"
	"go.uber.org/zap"
)

// ErrOutOfRange is returned for numeric lines that exceed the conversion width.
var ErrOutOfRange = errors.New("sample out of range")

// Reading is a sample received from the device, stamped with the host receive time.
type Reading struct {
	Timestamp time.Time
	Value     adc.Sample // 12-bit ADC reading (0-4095)
}

// readLines scans r line by line and sends every parsed Reading to out.
// It returns when ctx is done or r reaches EOF. Sends never block; when out is full the
// reading is dropped.
func readLines(ctx context.Context, r io.Reader, out chan<- Reading, now func() time.Time, logger *zap.SugaredLogger) {
	scanner := bufio.NewScanner(r)
	for {
		select {
		case <-ctx.Done():
			return
		default:
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
					logger.Warnw("Error reading from device", "error", err)
				}
				return
			}

			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			value, err := parseLine(line)
			if err != nil {
				// The banner and line noise end up here
				logger.Debugw("Skipping line", "line", line, "error", err)
				continue
			}

			select {
			case out <- Reading{Timestamp: now(), Value: value}:
			case <-ctx.Done():
				return
			default:
				logger.Warn("Readings channel full, dropping reading")
			}
		}
	}
}

// parseLine parses a single reported line.
// Format: decimal integer in [0, 4095], optionally surrounded by whitespace.
// Example: 2048
func parseLine(line string) (adc.Sample, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return 0, fmt.Errorf("empty line")
	}

	value, err := strconv.ParseUint(line, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid reading: %w", err)
	}
	if !adc.Sample(value).Valid() {
		return 0, fmt.Errorf("%w: %d (max %d)", ErrOutOfRange, value, adc.MaxSample)
	}

	return adc.Sample(value), nil
}
