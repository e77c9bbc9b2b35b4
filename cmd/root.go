package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/bugVanisher/rtmpd/config"
	"github.com/bugVanisher/rtmpd/event"
	"github.com/bugVanisher/rtmpd/media/protocol/rtmp"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/rs/zerolog/pkgerrors"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rtmpd [port]",
	Short: "Single-threaded RTMP session server.",
	Long:  ``,
	Args:  cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogger(logLevel, logJSON)
	},
	Version:      "v1.0.0",
	SilenceUsage: true, // silence usage when an error occurs
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		cfg, err := loadConfig(configFile, args)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

var (
	logLevel   string
	logJSON    bool
	configFile string
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() int {
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "INFO", "set log level")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "set log to json format (default colorized console)")
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "YAML config file")

	signal.Ignore(syscall.SIGPIPE)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		log.Error().Err(err).Msg("rtmpd exit")
		return 1
	}
	return 0
}

// loadConfig reads the optional config file; a positional port wins over it.
func loadConfig(file string, args []string) (*config.Config, error) {
	cfg := config.Default()
	if file != "" {
		var err error
		if cfg, err = config.Load(file); err != nil {
			return nil, err
		}
	}
	if len(args) == 1 {
		port, err := strconv.Atoi(args[0])
		if err != nil {
			return nil, errors.Wrapf(err, "invalid port %q", args[0])
		}
		if err = config.ValidatePort(port); err != nil {
			return nil, err
		}
		cfg.Server.Port = port
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	poller, err := event.NewPoller()
	if err != nil {
		return errors.Wrap(err, "create poller")
	}
	reactor := event.NewReactor(poller)

	opts := cfg.Options()
	opts = append(opts, rtmp.WithHandler(messageLogger{}))

	var hook *rtmp.HTTPHook
	if cfg.Hook.URL != "" {
		hook = rtmp.NewHTTPHook(context.Background(), cfg.Hook.URL, cfg.Hook.Workers, cfg.Hook.QueueLen)
		opts = append(opts, rtmp.WithServerHook(hook))
		log.Info().Str("url", cfg.Hook.URL).Msg("[hook] http hook enabled")
	}

	srv := rtmp.NewServer(reactor, opts...)
	if err = srv.Listen(cfg.Server.Port); err == nil {
		err = srv.Run(ctx)
	} else {
		srv.Shutdown()
	}
	if hook != nil {
		hook.Close()
	}
	return err
}

func initLogger(logLevel string, logJSON bool) {
	// Error Logging with Stacktrace
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack

	// set log timestamp precise to milliseconds
	zerolog.TimeFieldFormat = "2006-01-02T15:04:05.999Z0700"

	// init log writer
	var writer io.Writer
	if !logJSON {
		// log a human-friendly, colorized output
		noColor := false
		if runtime.GOOS == "windows" {
			noColor = true
		}

		writer = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
			NoColor:    noColor,
		}
		log.Info().Msg("log with colorized console")
	} else {
		// default logger
		log.Info().Msg("log with json output")
		writer = os.Stderr
	}
	log.Logger = zerolog.New(writer).With().Timestamp().Logger()

	// Setting Global Log Level
	level := strings.ToUpper(logLevel)
	log.Info().Str("log_level", level).Msg("set global log level")
	switch level {
	case "DEBUG":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "INFO":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "WARN":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "ERROR":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "FATAL":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	case "PANIC":
		zerolog.SetGlobalLevel(zerolog.PanicLevel)
	}
}
