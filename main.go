// onvif-camd is the PTZ control daemon for a pan/tilt camera head. It
// exposes ONVIF PTZ and device SOAP services plus a maintenance WebSocket
// with joystick control and a raw RTP video preview.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"onvif-camd/internal/config"
	"onvif-camd/internal/hal/sim"
	"onvif-camd/internal/hal/visca"
	"onvif-camd/internal/onvif"
	"onvif-camd/internal/ptz"
	"onvif-camd/internal/rtsp"
	"onvif-camd/internal/server"
)

func main() {
	// Command line flags override the config file.
	configPath := flag.String("config", "", "path to TOML config file")
	listenAddr := flag.String("listen", "", "HTTP listen address")
	halDriver := flag.String("hal", "", "motor driver (visca or sim)")
	halAddr := flag.String("hal-addr", "", "VISCA address (host:port)")
	streamURL := flag.String("stream", "", "RTSP URL of the onboard encoder")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Listen = *listenAddr
	}
	if *halDriver != "" {
		cfg.HAL.Driver = *halDriver
	}
	if *halAddr != "" {
		cfg.HAL.Address = *halAddr
	}
	if *streamURL != "" {
		cfg.Stream.URL = *streamURL
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	drv, err := newDriver(cfg.HAL)
	if err != nil {
		log.Fatal("driver setup failed", zap.Error(err))
	}

	adapter := ptz.NewAdapter(drv, log.Named("ptz"))
	if err := adapter.Init(); err != nil {
		// The SOAP services answer NotInitialized faults until the head
		// comes back; the daemon itself stays up.
		log.Error("ptz init failed, motion commands will fault", zap.Error(err))
	}
	defer adapter.Cleanup()

	var relay *rtsp.Client
	if cfg.Stream.URL != "" {
		relay, err = rtsp.NewClient(cfg.Stream.URL, log.Named("rtsp"))
		if err != nil {
			log.Fatal("stream setup failed", zap.Error(err))
		}
		if err := relay.Connect(); err != nil {
			log.Warn("stream connect failed, preview unavailable", zap.Error(err))
		}
	}

	srv := server.New(server.Config{
		ListenAddr: cfg.Listen,
		DeviceInfo: onvif.DeviceInfo{
			Manufacturer:    cfg.Device.Manufacturer,
			Model:           cfg.Device.Model,
			FirmwareVersion: cfg.Device.FirmwareVersion,
			SerialNumber:    cfg.Device.SerialNumber,
			HardwareID:      cfg.Device.HardwareID,
		},
	}, adapter, onvif.NewPresetStore(), relay, log.Named("server"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info("shutting down")
		srv.Stop()
	}()

	log.Info("onvif-camd starting",
		zap.String("listen", cfg.Listen),
		zap.String("hal", cfg.HAL.Driver),
		zap.String("stream", cfg.Stream.URL))

	if err := srv.Start(); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func newDriver(cfg config.HALConfig) (ptz.Driver, error) {
	switch cfg.Driver {
	case "visca":
		return visca.New(visca.Config{
			Address:  cfg.Address,
			Protocol: cfg.Protocol,
		})
	case "sim":
		return sim.New(), nil
	default:
		return nil, fmt.Errorf("unknown hal driver %q", cfg.Driver)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zcfg.Build()
}
