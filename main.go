package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gr-butler/estacion/config"
	"github.com/gr-butler/estacion/display"
	"github.com/gr-butler/estacion/env"
	"github.com/gr-butler/estacion/led"
	"github.com/gr-butler/estacion/network"
	"github.com/gr-butler/estacion/reporting"
	"github.com/gr-butler/estacion/sensors"
	"github.com/gr-butler/estacion/telemetry"
	"github.com/gr-butler/estacion/uplink"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"periph.io/x/conn/v3/gpio/gpioreg"
)

const version = "estacion-1.0.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newViper reads ESTACION_* overrides, e.g. ESTACION_UPLINK_TOKEN.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ESTACION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func newRootCmd() *cobra.Command {
	v := newViper()
	args := env.Args{}
	root := &cobra.Command{
		Use:          "estacion",
		Short:        "Unattended weather station node",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if *args.Verbose || v.GetBool("verbose") {
				logger.SetLevel(logger.DebugLevel)
			}
		},
	}
	flags := root.PersistentFlags()
	args.Config = flags.String("config", "estacion.yaml", "config file")
	args.Test = flags.Bool("test", false, "test mode, log payloads instead of sending them")
	args.Verbose = flags.Bool("verbose", false, "debug logging")
	flags.String("uplink.token", "", "device access token")
	flags.String("uplink.base_url", "", "telemetry server base URL")
	flags.String("uplink.transport", "", "http or mqtt")
	flags.String("network.mode", "", "nmcli or none")
	flags.String("display.kind", "", "lcd, console or none")
	flags.Bool("sensors.hardware", true, "read the attached sensors")
	flags.String("metrics.listen", "", "address for /metrics, empty disables")
	cobra.CheckErr(v.BindPFlags(flags))

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the station loop",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig(v)
				if err != nil {
					return err
				}
				return run(cfg)
			},
		},
		&cobra.Command{
			Use:   "sample",
			Short: "Take one reading and print the display rows and payload",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := loadConfig(v)
				if err != nil {
					return err
				}
				return sample(cmd, cfg)
			},
		},
		&cobra.Command{
			Use:   "config",
			Short: "Print the effective configuration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				cfg, err := config.Load(v.GetString("config"))
				if err != nil {
					return err
				}
				applyOverrides(cfg, v)
				out, err := cfg.Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			},
		},
	)
	return root
}

// loadConfig reads the config file, applies flag and ESTACION_* overrides and validates.
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load(v.GetString("config"))
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if v.IsSet("test") {
		cfg.Station.Test = v.GetBool("test")
	}
	if v.IsSet("uplink.token") {
		cfg.Uplink.Token = v.GetString("uplink.token")
	}
	if v.IsSet("uplink.base_url") {
		cfg.Uplink.BaseURL = v.GetString("uplink.base_url")
	}
	if v.IsSet("uplink.transport") {
		cfg.Uplink.Transport = v.GetString("uplink.transport")
	}
	if v.IsSet("network.mode") {
		cfg.Network.Mode = v.GetString("network.mode")
	}
	if v.IsSet("display.kind") {
		cfg.Display.Kind = v.GetString("display.kind")
	}
	if v.IsSet("sensors.hardware") {
		cfg.Sensors.Hardware = v.GetBool("sensors.hardware")
	}
	if v.IsSet("metrics.listen") {
		cfg.Metrics.Listen = v.GetString("metrics.listen")
	}
}

func run(cfg *config.Config) error {
	logger.Infof("Starting weather station [%v]", version)
	if cfg.Station.Test {
		logger.Info("TEST MODE")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	clock := clockwork.NewRealClock()

	logger.Infof("%v: Initialize sensors...", time.Now().Format(time.RFC822))
	hw, err := sensors.Open(cfg.Sensors, clock)
	if err != nil {
		logger.Errorf("Failed to initialise sensors!! [%v]", err)
		return err
	}
	defer hw.Close()

	status := led.NewLED("status", nil)
	if cfg.Sensors.Hardware {
		status = led.NewLED("status", gpioreg.ByName(cfg.Sensors.StatusLedPin))
	}
	hw.OnRainTip(status.Flash)
	hw.Start(ctx)

	renderer, screen, err := display.Open(cfg.Display)
	if err != nil {
		if renderer == nil {
			return err
		}
		logger.Errorf("Display unavailable [%v]", err)
		screen = display.Discard{}
	}
	defer screen.Close()

	var transport uplink.Transport = uplink.LogOnly{}
	if !cfg.Station.Test {
		if transport, err = uplink.New(cfg.Uplink); err != nil {
			return err
		}
	}

	sup := network.NewSupervisor(network.NewLink(cfg.Network), cfg.Network, clock, status)
	w := &weatherstation{
		clock:     clock,
		cadence:   cfg.Cadence,
		reader:    hw.Reader,
		renderer:  renderer,
		screen:    screen,
		transport: transport,
		net:       sup,
		sinks:     reporting.Open(cfg.Reporting, version),
		led:       status,
		testMode:  cfg.Station.Test,
	}
	sup.OnAttempt = w.onAttempt
	defer w.closeSinks()

	if cfg.Metrics.Listen != "" {
		go serve(ctx, cfg.Metrics.Listen, w)
	}

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Exiting...")
	return nil
}

// serve exposes /metrics and the latest payload on / until ctx is done.
func serve(ctx context.Context, addr string, w *weatherstation) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/", w.handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Infof("Starting webservice on [%v]", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Errorf("Webservice failed [%v]", err)
	}
}

// sample takes two readings one acquisition period apart so wind speed has an interval.
func sample(cmd *cobra.Command, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	clock := clockwork.NewRealClock()

	hw, err := sensors.Open(cfg.Sensors, clock)
	if err != nil {
		return err
	}
	defer hw.Close()
	hw.Start(ctx)

	hw.Reader.Acquire(clock.Now())
	clock.Sleep(cfg.Cadence.Acquire)
	s := hw.Reader.Acquire(clock.Now())

	class, err := display.ClassByName(cfg.Display.Class)
	if err != nil {
		return err
	}
	renderer := display.NewRenderer(class, cfg.Display.Placeholder, cfg.Display.Precision)
	if err := display.NewConsole(cmd.OutOrStdout()).Show(renderer.Render(s)); err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), telemetry.Encode(s))
	return err
}
