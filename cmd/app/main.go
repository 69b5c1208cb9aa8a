// Live Text Overlay
// Recognizes text in a webcam feed and draws it over the live video.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	"live-text-overlay/internal/config"
	"live-text-overlay/internal/core"
	"live-text-overlay/internal/gui"
	"live-text-overlay/internal/metrics"
	"live-text-overlay/internal/status"
)

const (
	AppName    = "Live Text Overlay"
	AppID      = "com.example.live-text-overlay"
	AppVersion = "1.0.0"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage:
  %[1]s [flags]                          run the live overlay
  %[1]s [flags] preprocess <in> <out>    binarize a still image
  %[1]s [flags] chat <prompt>            ask the configured chat endpoint once

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "", "Path to YAML configuration file")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	headless := flag.Bool("headless", false, "Run without a window and log recognized text")
	device := flag.Int("device", -1, "Camera device index (overrides config)")
	flag.Usage = usage
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}
	if *device >= 0 {
		cfg.Camera.Device = *device
	}
	if *headless {
		cfg.Headless = true
	}

	logger := initLogger(*debugMode, cfg.Log)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": *debugMode,
		"config":     *configPath,
	}).Info("Starting " + AppName)

	if flag.NArg() > 0 {
		switch flag.Arg(0) {
		case "preprocess":
			if flag.NArg() != 3 {
				usage()
				os.Exit(2)
			}
			if err := runPreprocess(cfg, flag.Arg(1), flag.Arg(2), logger); err != nil {
				logger.WithError(err).Error("Preprocessing failed")
				os.Exit(1)
			}
			return
		case "chat":
			if flag.NArg() < 2 {
				usage()
				os.Exit(2)
			}
			if err := runChat(cfg, strings.Join(flag.Args()[1:], " "), os.Stdout, logger); err != nil {
				logger.WithError(err).Error("Chat failed")
				os.Exit(1)
			}
			return
		case "run":
		default:
			usage()
			os.Exit(2)
		}
	}

	if err := run(cfg, *configPath, logger); err != nil {
		logger.WithError(err).Error("Exiting with error")
		os.Exit(1)
	}
	logger.Info("Application shutting down gracefully")
}

func run(cfg *config.Config, configPath string, logger *logrus.Logger) error {
	style, err := overlayStyle(cfg.Overlay)
	if err != nil {
		return err
	}

	stats := metrics.NewPipeline()
	threshold := core.NewThreshold(cfg.Overlay.ConfidenceThreshold)
	runner := newRunner(cfg, style, threshold, stats, logrus.NewEntry(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var srv *status.Server
	if cfg.Status.Listen != "" {
		srv = status.NewServer(stats, threshold, logrus.NewEntry(logger))
	}

	if cfg.Headless {
		serveStatus(ctx, srv, cfg.Status.Listen, logger)
		if configPath != "" {
			go watchConfig(ctx, configPath, threshold, logger, nil)
		}
		return runHeadless(ctx, runner, logrus.NewEntry(logger))
	}

	fyneApp := app.NewWithID(AppID)
	fyneApp.SetIcon(theme.MediaVideoIcon())
	fyneApp.Settings().SetTheme(theme.DefaultTheme())

	var assistant gui.Completer
	if cfg.Chat.Enabled {
		client, err := newChatClient(cfg.Chat, logger)
		if err != nil {
			logger.WithError(err).Warn("Chat disabled")
		} else {
			assistant = client
		}
	}

	window := gui.NewApplication(fyneApp, runner.Run, threshold, assistant, cfg.Camera.Width, cfg.Camera.Height, logrus.NewEntry(logger))
	if srv != nil {
		srv.OnThresholdChange(func(int) { window.SyncThreshold() })
	}
	serveStatus(ctx, srv, cfg.Status.Listen, logger)
	if configPath != "" {
		go watchConfig(ctx, configPath, threshold, logger, window.SyncThreshold)
	}

	go func() {
		<-ctx.Done()
		fyneApp.Quit()
	}()
	window.ShowAndRun()
	return nil
}

// serveStatus starts srv in the background. A nil srv is a no-op.
func serveStatus(ctx context.Context, srv *status.Server, addr string, logger *logrus.Logger) {
	if srv == nil {
		return
	}
	go func() {
		if err := srv.Run(ctx, addr); err != nil {
			logger.WithError(err).Error("Status server stopped")
		}
	}()
}

// watchConfig applies live changes to the confidence threshold and log
// level. onThreshold, if set, is called after each reload.
func watchConfig(ctx context.Context, path string, threshold *core.Threshold, logger *logrus.Logger, onThreshold func()) {
	err := config.Watch(ctx, path, logrus.NewEntry(logger), func(next *config.Config) {
		threshold.Set(next.Overlay.ConfidenceThreshold)
		if level, err := logrus.ParseLevel(next.Log.Level); err == nil {
			logger.SetLevel(level)
		}
		if onThreshold != nil {
			onThreshold()
		}
	})
	if err != nil {
		logger.WithError(err).Warn("Config hot reload disabled")
	}
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool, cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
		return logger
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
