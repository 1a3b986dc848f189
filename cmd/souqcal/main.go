package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"souqcal/internal/ai"
	"souqcal/internal/config"
	appLog "souqcal/internal/log"
	"souqcal/internal/model"
	"souqcal/internal/notify"
	"souqcal/internal/sched"
	"souqcal/internal/store"
	"souqcal/internal/web"
)

// flagConfig holds CLI flag values applied on top of the config file.
type flagConfig struct {
	configPath string
	listen     string
	dataDir    string
}

func main() {
	appLog.Info("souqcal starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.dataDir != "" {
		conf.DataDir = flags.dataDir
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"data_dir", conf.DataDir,
		"log_level", conf.LogLevel,
	)

	st, err := store.New(conf.DataDir)
	if err != nil {
		appLog.Error("failed to open data directory", err, "data_dir", conf.DataDir)
		os.Exit(1)
	}

	loc := conf.Location()
	jobs := sched.NewJobs(st, notify.NewWebhook(), ai.New, loc)
	scheduler := sched.New(jobs, loc)

	if err := scheduler.Start(); err != nil {
		appLog.Error("failed to start scheduler", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	// Arm the notification job from the persisted settings; it is re-armed
	// on every settings save.
	var settings model.Settings
	_ = st.Load(store.DocSettings, &settings, model.DefaultSettings())
	if err := scheduler.ScheduleNotifications(settings.DailyBriefingTime); err != nil {
		appLog.Error("failed to schedule notifications", err)
	}

	// Root context canceled on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	go func() {
		if err := web.StartServer(conf, st, scheduler, jobs); err != nil {
			appLog.Error("HTTP server stopped", err)
			cancel()
		}
	}()

	<-ctx.Done()
	appLog.Info("souqcal exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./souqcal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.dataDir, "data", "", "Data directory (overrides config if set)")

	flag.Parse()

	return cfg
}
