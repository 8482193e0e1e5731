package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/river-app/river/internal/api"
	"github.com/river-app/river/internal/booking"
	"github.com/river-app/river/internal/chat"
	"github.com/river-app/river/internal/config"
	"github.com/river-app/river/internal/connector"
	slackconn "github.com/river-app/river/internal/connector/slack"
	"github.com/river-app/river/internal/connector/telegram"
	"github.com/river-app/river/internal/connector/webhook"
	"github.com/river-app/river/internal/gauge"
	"github.com/river-app/river/internal/inbound"
	"github.com/river-app/river/internal/lifecycle"
	"github.com/river-app/river/internal/logbuf"
	"github.com/river-app/river/internal/notify"
	"github.com/river-app/river/internal/personality"
	"github.com/river-app/river/internal/provider"
	"github.com/river-app/river/internal/scheduler"
	"github.com/river-app/river/internal/ticket"
	"github.com/river-app/river/internal/voice"
	"github.com/river-app/river/pkg/protocol"
)

const defaultLogCapacity = 2000

func main() {
	configPath := flag.String("config", os.Getenv("RIVER_CONFIG"), "Path to config file (.json, .yaml)")
	envFile := flag.String("env-file", ".env", "Optional .env file loaded before reading the environment")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Load config (2 modes: file, env)
	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// Set up logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	capacity := cfg.App.LogCapacity
	if capacity <= 0 {
		capacity = defaultLogCapacity
	}
	logBuf := logbuf.New(capacity)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, logBuf); err != nil {
		logger.Error("riverd failed", "error", err)
		os.Exit(1)
	}
	logger.Info("riverd stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, logBuf *logbuf.Buffer) error {
	logger.Info("riverd starting", "data_dir", cfg.App.DataDir, "provider", cfg.Assistant.Provider)

	// 1. Providers
	chatProv := buildProvider(cfg, cfg.Assistant.Provider, logger)
	voiceProv := buildProvider(cfg, cfg.Assistant.VoiceProvider, logger)

	// 2. Stores
	if err := os.MkdirAll(cfg.App.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	history, err := gauge.NewSQLiteStore(filepath.Join(cfg.App.DataDir, "gauges.db"))
	if err != nil {
		return err
	}
	defer history.Close()
	tickets, err := ticket.NewSQLiteStore(filepath.Join(cfg.App.DataDir, "tickets.db"))
	if err != nil {
		return err
	}
	defer tickets.Close()

	// 3. Notifications. Connector sinks are appended once the connectors
	// exist, before anything can fire.
	feed := notify.NewFeed(cfg.Notifications.FeedSize)
	hub := notify.NewHub(logger.With("component", "events"))
	sinks := notify.Fanout{feed, hub}
	if cfg.Notifications.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Notifications.WebhookURL, cfg.Notifications.WebhookSecret))
	}
	serviceNotifier := notify.Func(func(ctx context.Context, n protocol.Notification) error {
		return sinks.Notify(ctx, n)
	})

	appNotifier := notify.Fanout{feed, hub}

	// 4. Gauges
	gauges, err := gauge.NewSet(gauge.DefaultSpecs(), gauge.Options{
		Store:    history,
		Notifier: appNotifier,
		Logger:   logger.With("component", "gauge"),
	})
	if err != nil {
		return err
	}
	water, _ := gauges.Get(gauge.Water)

	// 5. Service simulators
	onChange := func(t protocol.Ticket) {
		if err := tickets.Save(t); err != nil {
			logger.Error("ticket not saved", "ticket", t.ID, "error", err)
		}
		hub.Publish("ticket", t)
	}
	refills := lifecycle.New(lifecycle.RefillProfile(), lifecycle.Options{
		Notifier: serviceNotifier,
		Logger:   logger.With("component", "refill"),
		OnChange: onChange,
		OnComplete: func(t protocol.Ticket) {
			if t.ResultAmount == nil {
				return
			}
			amount := *t.ResultAmount
			if _, err := water.Increment(context.Background(), amount); err != nil {
				logger.Error("refill not applied", "ticket", t.ID, "error", err)
				return
			}
			d := protocol.Delivery{ID: uuid.NewString(), Gauge: gauge.Water, Amount: amount, Time: *t.CompletedAt}
			if err := history.AddDelivery(d); err != nil {
				logger.Error("delivery not recorded", "ticket", t.ID, "error", err)
			}
		},
	})
	defer refills.Close()
	pickups := lifecycle.New(lifecycle.PickupProfile(), lifecycle.Options{
		Notifier: serviceNotifier,
		Logger:   logger.With("component", "pickup"),
		OnChange: onChange,
	})
	defer pickups.Close()
	services := map[protocol.ServiceKind]*lifecycle.Simulator{
		protocol.ServiceRefill: refills,
		protocol.ServicePickup: pickups,
	}

	// 6. Automatic services
	sched := scheduler.New(func(kind protocol.ServiceKind) {
		sim, ok := services[kind]
		if !ok {
			return
		}
		if _, err := sim.RequestNow(); err != nil {
			logger.Warn("scheduled request failed", "service", kind, "error", err)
		}
	}, logger.With("component", "scheduler"))
	for _, sc := range cfg.Schedules {
		if err := sched.SetService(sc.Service, sc.Enabled, scheduler.Frequency(sc.Frequency)); err != nil {
			return err
		}
	}

	// 7. Personality and chat
	initial := protocol.DefaultPersonality()
	if cfg.Personality != nil {
		initial = *cfg.Personality
	}
	persona := personality.NewStore(initial, logger.With("component", "personality"))
	chats := chat.NewManager(chat.Options{
		Provider:          chatProv,
		Model:             cfg.Assistant.Model,
		SystemInstruction: persona.Instruction(),
		Logger:            logger.With("component", "chat"),
	})
	defer chats.Close()
	persona.Subscribe(func(_ protocol.Personality, instruction string) {
		chats.ReinitializeAll(instruction)
	})

	// 8. Voice
	var whisper *voice.Whisper
	if cfg.Voice.WhisperURL != "" || cfg.Voice.WhisperAPIKey != "" {
		whisper = voice.NewWhisper(cfg.Voice.WhisperURL, cfg.Voice.WhisperAPIKey, cfg.Voice.WhisperModel)
	}
	playback := voice.NewOutbox(time.Duration(cfg.Voice.PlaybackWait) * time.Second)
	voiceOpts := voice.Options{
		Player: playback,
		Voice:  func() protocol.Voice { return persona.Get().Voice },
		Logger: logger.With("component", "voice"),
	}
	if whisper != nil {
		voiceOpts.Recognizer = voice.NewWhisperRecognizer(whisper)
	}
	if cfg.Voice.TTSURL != "" || cfg.Voice.TTSAPIKey != "" {
		voiceOpts.Synthesizer = voice.NewSpeechSynthesizer(cfg.Voice.TTSURL, cfg.Voice.TTSAPIKey, cfg.Voice.TTSModel)
	}
	if voiceProv != nil {
		voiceOpts.Sender = provider.NewSession(voiceProv, personality.BaseInstruction, cfg.Assistant.Model)
	}
	conv := voice.New(voiceOpts)
	defer conv.Close()

	// Dashboard extras report to the app only.
	extras := booking.Options{Notifier: appNotifier, Logger: logger.With("component", "booking")}
	carWash := booking.NewCarWash(extras)
	fitness := booking.NewFitness(extras)
	prefs := notify.NewPreferences(appNotifier, logger.With("component", "preferences"))

	// 9. Inbound connectors
	router := inbound.NewRouter(chats, logger.With("component", "inbound"))
	router.AddService(refills)
	router.AddService(pickups)
	router.Gauges = func() []protocol.GaugeStatus {
		all := gauges.All()
		out := make([]protocol.GaugeStatus, 0, len(all))
		for _, g := range all {
			out = append(out, g.Status())
		}
		return out
	}

	g, ctx := errgroup.WithContext(ctx)

	if tc := cfg.Connectors.Telegram; tc != nil {
		tgCfg := telegram.Config{Token: tc.Token, AllowFrom: tc.AllowFrom}
		if whisper != nil {
			tgCfg.Transcriber = whisper
		}
		tg, err := telegram.New(tgCfg, router.Handle, logger.With("connector", "telegram"))
		if err != nil {
			return err
		}
		if chatID := cfg.Notifications.TelegramChatID; chatID != "" {
			sinks = append(sinks, notify.ConnectorSink{Sender: tg, ChatID: chatID})
		}
		g.Go(safeGo(logger, "telegram", func() error { return runConnector(ctx, logger, tg) }))
	}

	if sc := cfg.Connectors.Slack; sc != nil {
		sl, err := slackconn.New(slackconn.Config{
			BotToken: sc.BotToken,
			AppToken: sc.AppToken,
			Channels: sc.Channels,
		}, router.Handle, logger.With("connector", "slack"))
		if err != nil {
			return err
		}
		if channel := cfg.Notifications.SlackChannel; channel != "" {
			sinks = append(sinks, notify.ConnectorSink{Sender: sl, ChatID: channel})
		}
		g.Go(safeGo(logger, "slack", func() error { return runConnector(ctx, logger, sl) }))
	}

	deps := api.Deps{
		Gauges:        gauges,
		History:       history,
		Refills:       refills,
		Pickups:       pickups,
		Tickets:       tickets,
		Scheduler:     sched,
		Personality:   persona,
		Chats:         chats,
		Voice:         conv,
		Playback:      playback,
		Notifications: feed,
		Preferences:   prefs,
		CarWash:       carWash,
		Fitness:       fitness,
		Events:        hub,
		Logs:          logBuf,
	}
	if wc := cfg.Connectors.Webhook; wc != nil {
		endpoints := make(map[string]webhook.EndpointConfig, len(wc.Endpoints))
		for name, ep := range wc.Endpoints {
			endpoints[name] = webhook.EndpointConfig{Secret: ep.Secret, BearerToken: ep.BearerToken}
		}
		deps.Webhook = webhook.New(webhook.Config{Endpoints: endpoints}, router.Handle, logger.With("connector", "webhook"))
	}

	// 10. Background loops and the API server
	g.Go(safeGo(logger, "events", func() error { return hub.Run(ctx) }))
	g.Go(safeGo(logger, "scheduler", func() error { return sched.Start(ctx) }))

	apiSrv := api.NewServer(deps, api.Config{
		Host:        cfg.API.Host,
		Port:        cfg.API.Port,
		Key:         cfg.API.Key,
		CORSOrigins: cfg.API.CORSOrigins,
	}, logger.With("component", "api"))
	g.Go(safeGo(logger, "api-server", func() error { return apiSrv.Start(ctx) }))

	return g.Wait()
}

// buildProvider returns the named provider, or nil when none is configured.
// Chats then report the missing credential to the user.
func buildProvider(cfg *config.Config, name string, logger *slog.Logger) provider.Provider {
	pcfg, ok := cfg.Providers[name]
	if !ok {
		logger.Warn("no provider configured, chat will report missing credentials", "provider", name)
		return nil
	}
	logger.Info("provider initialized", "name", name, "type", pcfg.Type, "model", pcfg.Model)

	switch pcfg.Type {
	case config.ProviderOpenAI:
		var opts []provider.OpenAIOption
		if pcfg.BaseURL != "" {
			opts = append(opts, provider.WithBaseURL(pcfg.BaseURL))
		}
		if pcfg.Model != "" {
			opts = append(opts, provider.WithModel(pcfg.Model))
		}
		return provider.NewOpenAI(pcfg.APIKey, opts...)
	case config.ProviderAnthropic:
		var opts []provider.AnthropicOption
		if pcfg.BaseURL != "" {
			opts = append(opts, provider.WithAnthropicBaseURL(pcfg.BaseURL))
		}
		if pcfg.Model != "" {
			opts = append(opts, provider.WithAnthropicModel(pcfg.Model))
		}
		return provider.NewAnthropic(pcfg.APIKey, opts...)
	default:
		var opts []provider.GeminiOption
		if pcfg.BaseURL != "" {
			opts = append(opts, provider.WithGeminiBaseURL(pcfg.BaseURL))
		}
		if pcfg.Model != "" {
			opts = append(opts, provider.WithGeminiModel(pcfg.Model))
		}
		return provider.NewGemini(pcfg.APIKey, opts...)
	}
}

// safeGo wraps fn with panic recovery for use with errgroup.
func safeGo(logger *slog.Logger, name string, fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
				err = fmt.Errorf("%s: panic: %v", name, r)
			}
		}()
		return fn()
	}
}

// runConnector runs c until ctx is cancelled. A connector that fails is
// logged; the app and API keep running without it.
func runConnector(ctx context.Context, logger *slog.Logger, c connector.Connector) error {
	err := c.Start(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("connector stopped", "connector", c.Name(), "error", err)
	}
	return nil
}
