package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ai-rea/assistant/pkg/agent"
	"github.com/ai-rea/assistant/pkg/bus"
	"github.com/ai-rea/assistant/pkg/server"
	"github.com/ai-rea/assistant/pkg/transcript"
)

var (
	flagConfig    string
	flagLogLevel  string
	flagLogFormat string
)

func setupLogging() error {
	level, err := zerolog.ParseLevel(flagLogLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", flagLogLevel)
	}
	zerolog.SetGlobalLevel(level)

	useConsole := flagLogFormat == "console" ||
		(flagLogFormat == "auto" && isatty.IsTerminal(os.Stderr.Fd()))
	if useConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	return nil
}

func newServeCommand() *cobra.Command {
	var (
		flagAddr       string
		flagAgentURL   string
		flagRedisAddr  string
		flagTranscript string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant sidecar",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flagConfig)
			if err != nil {
				return err
			}
			if flagAddr != "" {
				cfg.ListenAddr = flagAddr
			}
			if flagAgentURL != "" {
				cfg.AgentURL = flagAgentURL
			}
			if flagRedisAddr != "" {
				cfg.Redis.Addr = flagRedisAddr
			}
			if flagTranscript != "" {
				cfg.TranscriptDSN = flagTranscript
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&flagAddr, "addr", "", "HTTP listen address")
	cmd.Flags().StringVar(&flagAgentURL, "agent-url", "", "base URL of the agent backend")
	cmd.Flags().StringVar(&flagRedisAddr, "redis-addr", "", "Redis address for the signal bus (empty = in-memory)")
	cmd.Flags().StringVar(&flagTranscript, "transcript-dsn", "", "SQLite DSN for transcript recording (empty = disabled)")
	return cmd
}

func runServe(ctx context.Context, cfg Config) error {
	var (
		signalBus *bus.Bus
		err       error
	)
	if cfg.Redis.Enabled() {
		signalBus, err = bus.NewRedis(cfg.Redis)
		if err != nil {
			return err
		}
		log.Info().Str("addr", cfg.Redis.Addr).Msg("signal bus on redis streams")
	} else {
		signalBus = bus.NewInMemory()
	}
	defer func() { _ = signalBus.Close() }()

	var transcripts transcript.Store
	if cfg.TranscriptDSN != "" {
		transcripts, err = transcript.NewSQLiteStore(cfg.TranscriptDSN)
		if err != nil {
			return err
		}
		defer func() { _ = transcripts.Close() }()
		log.Info().Str("dsn", cfg.TranscriptDSN).Msg("transcript recording enabled")
	}

	client := agent.NewClient(cfg.AgentURL, agent.WithTimeout(cfg.RequestTimeout))

	srv, err := server.New(ctx, server.Config{
		Transport:         client,
		Bus:               signalBus,
		Transcripts:       transcripts,
		DefaultLanguage:   cfg.DefaultLanguage,
		IdleTimeout:       cfg.IdleTimeout,
		I18nOverridesPath: cfg.I18nOverrides,
	})
	if err != nil {
		return err
	}
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Str("agent_url", cfg.AgentURL).Msg("assistant sidecar listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	root := &cobra.Command{
		Use:   "rea-assistant",
		Short: "Conversational assistant sidecar for the AI-REA web app",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "auto", "log format (auto|console|json)")
	root.AddCommand(newServeCommand())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
