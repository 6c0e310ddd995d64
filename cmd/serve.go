package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aaronparisi/technoblog/internal/config"
	"github.com/aaronparisi/technoblog/internal/db"
	"github.com/aaronparisi/technoblog/internal/server"
	"github.com/aaronparisi/technoblog/internal/site"
	"github.com/aaronparisi/technoblog/internal/watch"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the blog over HTTP",
	Long: `Starts the web server. Pages are rendered with the reader's theme on the
first request; an open page keeps a websocket session that follows theme
changes, navigation and edits to the content directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		logger, err := newLogger(cfg)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		defer logger.Sync()

		reg, err := buildRegistry(cfg)
		if err != nil {
			return fmt.Errorf("building post registry: %w", err)
		}
		if status, err := checkContent(cfg, reg); err != nil {
			logger.Warn("content directory unreadable", zap.String("dir", cfg.ContentDir), zap.Error(err))
		} else {
			for _, p := range status.Missing {
				logger.Warn("post content missing", zap.String("route", p.Route), zap.String("ref", p.ContentRef))
			}
		}

		var database *db.DB
		if cfg.Theme.Storage == config.StorageSQLite {
			database, err = db.Open(cfg.Theme.DBPath)
			if err != nil {
				return fmt.Errorf("opening preference database: %w", err)
			}
			defer database.Close()
		}

		blog, err := site.New(site.Options{
			Title:        cfg.SiteTitle,
			Registry:     reg,
			Fetcher:      buildFetcher(cfg),
			Renderer:     buildRenderer(cfg, logger),
			FetchTimeout: fetchTimeout(cfg),
			Key:          cfg.Theme.Key,
			DB:           database,
			Logger:       logger,
		})
		if err != nil {
			return err
		}

		srv := server.New(server.Config{
			Port:           cfg.Server.Port,
			AllowAll:       cfg.Server.AllowAllOrigins,
			RequestTimeout: fetchTimeout(cfg) + 5*time.Second,
		}, logger)
		blog.Register(srv.Router(), srv.Pages())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})

		if cfg.Watch.Enabled {
			w, err := watch.New(cfg.ContentDir, func(ref string) { blog.Refresh(ref) },
				watch.WithInclude(cfg.Watch.Include...),
				watch.WithExclude(cfg.Watch.Exclude...),
				watch.WithLogger(logger))
			if err != nil {
				logger.Warn("not watching content", zap.String("dir", cfg.ContentDir), zap.Error(err))
			} else {
				g.Go(func() error { return w.Run(gctx) })
			}
		}

		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			blog.Close()
			return srv.Shutdown(shutdownCtx)
		})

		fmt.Fprintf(os.Stderr, "technoblog %s serving %d posts at http://localhost:%d\n", Version, reg.Len(), cfg.Server.Port)
		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
