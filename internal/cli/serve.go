package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/sistemadual/docgen/internal/jobs"
	"github.com/sistemadual/docgen/internal/pipeline"
	"github.com/sistemadual/docgen/internal/server"
	"github.com/sistemadual/docgen/pkg/docgen"
)

func (c *CLI) serveCommand() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the document generation HTTP service",
		Long: `Serve document generation over HTTP.

  POST /v1/documents           generate and return the artifact
  POST /v1/jobs                queue a generation
  GET  /v1/jobs/{id}           job status
  GET  /v1/jobs/{id}/artifact  finished artifact
  GET  /v1/charts/{pct}.png    ring chart

Job state lives in memory, or in Redis when a redis_url is configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			return c.runServe(cmd, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, addr string) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	cfg := c.cfg.Server

	opts := []pipeline.Option{pipeline.WithConfinedTemplates()}
	if cfg.CacheSize > 0 {
		cache := docgen.NewTemplateCache(c.cfg.CacheConfig())
		opts = append(opts, pipeline.WithTemplateCache(cache))
		if dir := c.cfg.Templates.Dir; dir != "" {
			watcher, err := server.NewCacheWatcher(dir, cache, logger)
			if err != nil {
				return err
			}
			if err := watcher.Start(ctx); err != nil {
				logger.Warn("template watcher disabled", "dir", dir, "err", err)
			} else {
				defer watcher.Stop()
			}
		}
	}
	gen := c.generator(logger, opts...)

	var jobStore jobs.Store
	if cfg.RedisURL != "" {
		rs, err := jobs.NewRedisStore(ctx, cfg.RedisURL, cfg.JobTTL)
		if err != nil {
			return err
		}
		defer rs.Close()
		jobStore = rs
		logger.Info("job state in redis")
	} else {
		ms := jobs.NewMemoryStore(cfg.JobTTL)
		go sweep(ctx, ms, cfg.JobTTL)
		jobStore = ms
	}

	queue := jobs.NewQueue(gen, jobStore,
		jobs.WithWorkers(cfg.Workers),
		jobs.WithQueueSize(cfg.QueueSize),
		jobs.WithLogger(logger),
	)
	queue.Start(ctx)
	defer queue.Close()

	srv := server.New(gen,
		server.WithQueue(queue),
		server.WithTempDir(c.cfg.Output.TempDir),
		server.WithChartOptions(c.cfg.ChartOptions()),
		server.WithLogger(logger),
	)
	printInfo(c.out, "serving on %s", addr)
	return srv.Run(ctx, addr)
}

// sweep drops expired jobs from a memory store until ctx ends.
func sweep(ctx context.Context, ms *jobs.MemoryStore, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t := time.NewTicker(ttl / 4)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_ = ms.Cleanup(ctx)
		}
	}
}
