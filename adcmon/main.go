// Command adcmon reads the ADC reporter over a serial port, prints and forwards the
// readings, and optionally plots them.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/goadc/pkg/config"
	"github.com/itohio/goadc/pkg/device"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	flagConfig  = "config"
	flagPort    = "port"
	flagMock    = "mock"
	flagAverage = "average"
	flagDebug   = "debug"
)

// appContext is shared by all commands after Before has run.
type appContext struct {
	cfg        *config.Config
	configPath string
	logger     *zap.SugaredLogger
	useMock    bool
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	actx := &appContext{}

	return &cli.App{
		Name:  "adcmon",
		Usage: "monitor the ADC reporter",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "load configuration from `FILE`",
			},
			&cli.StringFlag{
				Name:    flagPort,
				Aliases: []string{"p"},
				Usage:   "serial port override (e.g. COM3 or /dev/ttyACM0)",
			},
			&cli.BoolFlag{
				Name:  flagMock,
				Usage: "use the simulated device instead of a serial port",
			},
			&cli.IntFlag{
				Name:  flagAverage,
				Value: -1,
				Usage: "moving average window in samples (0 disables, overrides config)",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			return actx.init(c)
		},
		After: func(*cli.Context) error {
			if actx.logger != nil {
				// Sync fails on stderr for some terminals
				_ = actx.logger.Sync()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return actx.monitor(c)
		},
		Commands: []*cli.Command{
			{
				Name:  "ports",
				Usage: "list available serial ports",
				Action: func(c *cli.Context) error {
					return printPorts(c.App.Writer)
				},
			},
			{
				Name:  "monitor",
				Usage: "print readings and forward them to the configured sinks",
				Action: func(c *cli.Context) error {
					return actx.monitor(c)
				},
			},
			{
				Name:  "view",
				Usage: "plot readings in a window",
				Action: func(*cli.Context) error {
					return runView(actx)
				},
			},
		},
	}
}

// init loads the configuration, applies flag overrides and builds the logger.
func (a *appContext) init(c *cli.Context) error {
	a.configPath = c.String(flagConfig)
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyOverrides(cfg, c.String(flagPort), c.Int(flagAverage))

	logger, err := newLogger(cfg.Log.Level, c.Bool(flagDebug))
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.useMock = c.Bool(flagMock)
	return nil
}

func applyOverrides(cfg *config.Config, port string, average int) {
	if port != "" {
		cfg.Serial.Port = port
	}
	if average >= 0 {
		cfg.ADC.AverageSamples = average
	}
}

// monitor runs the pipeline until interrupted.
func (a *appContext) monitor(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	dev := openDevice(a.cfg, a.useMock, a.logger)
	return runMonitor(ctx, a.cfg, dev, sourceName(a.cfg, a.useMock), c.App.Writer, a.logger)
}

func printPorts(w io.Writer) error {
	ports, err := device.Ports()
	if err != nil {
		return fmt.Errorf("failed to list serial ports: %w", err)
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "No serial ports found")
		return nil
	}

	for _, p := range ports {
		line := p.Name
		if p.Description != "" && p.Description != p.Name {
			line = fmt.Sprintf("%s (%s)", p.Name, p.Description)
		}
		if p.IsUSB {
			line += " [USB]"
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
