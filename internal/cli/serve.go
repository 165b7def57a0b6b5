package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/professor93/tgconfig/internal/reload"
	"github.com/professor93/tgconfig/internal/server"
	"github.com/professor93/tgconfig/pkg/constants"
)

// serveOptions carries the flags shared by "serve" and "service run"
type serveOptions struct {
	port   int
	reload string
	logDir string
}

var (
	serveOpts     = serveOptions{port: constants.DefaultPort, reload: reload.DefaultSchedule}
	serveLogToDir bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server in the foreground",
	Long: `Serves /health, /api/config, /api/config/<app> and /<app>/config.js
until interrupted. Records are reloaded on the --reload schedule; a reload
that fails to load or validate keeps the records already being served.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		opts := serveOpts
		if serveLogToDir {
			opts.logDir = "logs"
		}
		return runServer(ctx, opts)
	},
}

func init() {
	serveCmd.Flags().IntVar(&serveOpts.port, "port", constants.DefaultPort, "HTTP listen port")
	serveCmd.Flags().StringVar(&serveOpts.reload, "reload", reload.DefaultSchedule, `Reload schedule (cron expression or "@every 30s"; "off" disables)`)
	serveCmd.Flags().BoolVar(&serveLogToDir, "log-file", false, "Also write logs to <data-dir>/logs")
	rootCmd.AddCommand(serveCmd)
}

// runServer loads the records, serves them and blocks until ctx is done
func runServer(ctx context.Context, opts serveOptions) error {
	app, err := openApp(opts.logDir)
	if err != nil {
		return err
	}
	defer app.Close()

	set, err := app.load()
	if err != nil {
		return err
	}

	cfg := server.DefaultConfig()
	cfg.Port = opts.port
	cfg.Version = Version
	cfg.Store = app.store
	cfg.Logger = app.logger
	cfg.DisableStartupMessage = true
	srv := server.New(cfg, set)

	if opts.reload != "off" {
		reloader, err := reload.New(opts.reload, app.load, srv, app.logger)
		if err != nil {
			return err
		}
		reloader.Start()
		defer func() { <-reloader.Stop().Done() }()
	}

	app.logger.Info("Serving front-end configuration",
		zap.Int("port", opts.port),
		zap.String("data_dir", app.dataDir),
		zap.String("version", Version),
	)
	return srv.StartWithContext(ctx)
}
