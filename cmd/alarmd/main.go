// alarmd is the always-on alarm service. It keeps running after the app
// quits, fires armed alarms and brings the app up to ring them.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/borgmon/wakeup/pkg/audio"
	"github.com/borgmon/wakeup/pkg/clock"
	"github.com/borgmon/wakeup/pkg/config"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/borgmon/wakeup/pkg/nativesvc"
)

func main() {
	configPath := flag.String("config", "", "path to wakeup.yaml")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Fatal(err)
	}
}

func run(configPath string) error {
	if configPath == "" {
		dir, err := config.DefaultDir()
		if err != nil {
			return err
		}
		configPath = config.Path(dir)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // nothing useful to do on a failed flush

	store, err := nativesvc.Open(cfg.DatabaseFile())
	if err != nil {
		return err
	}
	defer store.Close()

	c := clock.Real()
	backend := audio.NewOtoBackend(logger)
	backend.LoadOverrides(cfg.SoundsPath())
	engine := audio.NewEngine(backend, c, logger, models.DefaultSettings().PreviewDuration())
	daemon := nativesvc.NewDaemon(store, c, engine, nativesvc.CommandLauncher{Command: cfg.Daemon.LaunchCommand}, logger, nativesvc.DaemonConfig{
		PollInterval:         cfg.Daemon.PollInterval,
		RingTimeout:          cfg.Daemon.RingTimeout,
		ExactAlarmPermission: cfg.Daemon.ExactAlarmPermission,
		AppStaleAfter:        3 * cfg.TickInterval,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infof("alarmd: serving %s", cfg.DatabaseFile())
	return daemon.Run(ctx)
}
