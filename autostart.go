package main

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/emersion/go-autostart"
)

// daemonPath returns the alarmd executable installed next to this binary
func daemonPath() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}

	// Resolve symlinks if any
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return "", err
	}

	name := "alarmd"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(filepath.Dir(execPath), name), nil
}

// setupAutostart registers alarmd to start at login so alarms ring without
// the app running
func setupAutostart(enable bool, log logging.Logger) error {
	path, err := daemonPath()
	if err != nil {
		return err
	}

	app := &autostart.App{
		Name:        "wakeup-alarmd",
		DisplayName: "WakeUp Alarm Service",
		Exec:        []string{path},
	}

	if enable {
		if _, err := os.Stat(path); err != nil {
			return err
		}
		if !app.IsEnabled() {
			if err := app.Enable(); err != nil {
				log.Errorf("wakeup: failed to enable autostart: %v", err)
				return err
			}
			log.Info("wakeup: autostart enabled")
		}
	} else {
		if app.IsEnabled() {
			if err := app.Disable(); err != nil {
				log.Errorf("wakeup: failed to disable autostart: %v", err)
				return err
			}
			log.Info("wakeup: autostart disabled")
		}
	}

	return nil
}
