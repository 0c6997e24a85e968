package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	flag "github.com/spf13/pflag"

	"tgnotifier/internal/app"
	"tgnotifier/internal/config"
	"tgnotifier/internal/dispatch"
	"tgnotifier/internal/updates"
)

func main() {
	var (
		cfgPath   string
		envFiles  []string
		install   bool
		uninstall bool
		test      bool
		version   bool
	)
	flag.StringVarP(&cfgPath, "config", "c", "./config.yaml", "path to config (json or yaml)")
	flag.StringSliceVar(&envFiles, "env-file", []string{".env"}, "dotenv files loaded before the config")
	flag.BoolVar(&install, "install", false, "seed the settings store and exit")
	flag.BoolVar(&uninstall, "uninstall", false, "delete every setting and exit")
	flag.BoolVar(&test, "test", false, "send the test message to the order recipients and exit")
	flag.BoolVarP(&version, "version", "v", false, "print version and exit")
	flag.Parse()

	if version {
		fmt.Println("tgnotifier", updates.Version)
		return
	}
	if err := config.LoadDotEnv(envFiles...); err != nil {
		fmt.Fprintln(os.Stderr, "fatal: env:", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	if install || uninstall || test {
		os.Exit(runOnce(ctx, a, install, uninstall, test))
	}

	if err := a.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "fatal start:", err)
		_ = a.Stop(context.Background())
		os.Exit(1)
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	select {
	case <-ctx.Done():
	case <-a.Done():
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	stopErr := a.Stop(stopCtx)
	if err := a.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	if stopErr != nil {
		fmt.Fprintln(os.Stderr, "stop:", stopErr)
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, a *app.App, install, uninstall, test bool) int {
	defer func() { _ = a.Stop(context.Background()) }()

	switch {
	case uninstall:
		if err := a.Uninstall(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "uninstall:", err)
			return 1
		}
		fmt.Println("settings removed")
	case install:
		if err := a.Install(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "install:", err)
			return 1
		}
		fmt.Println("settings installed")
	}
	if test {
		out := a.SendTest(ctx)
		if out != dispatch.Sent {
			fmt.Fprintln(os.Stderr, "Failed to send test message. Please check your settings. outcome:", out)
			return 1
		}
		fmt.Println("Test message sent successfully.")
	}
	return 0
}
