/*
Copyright © 2023 TxPull <code@txpull.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package serve_cmd

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	sourcify "github.com/txpull/sourcify-go"
	"go.uber.org/zap"

	"github.com/txpull/sourcecheck/chain"
	"github.com/txpull/sourcecheck/clients"
	"github.com/txpull/sourcecheck/compilers"
	"github.com/txpull/sourcecheck/db"
	"github.com/txpull/sourcecheck/monitor"
	"github.com/txpull/sourcecheck/options"
	"github.com/txpull/sourcecheck/verifier"
	"github.com/txpull/sourcecheck/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the worker pool and chain monitor loops until terminated",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts options.Options
		if err := viper.Unmarshal(&opts); err != nil {
			return fmt.Errorf("failure to decode options: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		pg, err := db.NewPostgres(ctx, opts.Database.Postgres)
		if err != nil {
			return fmt.Errorf("failure to connect to postgres: %w", err)
		}
		defer pg.Close()

		ephem, err := db.NewBadgerDB(opts.Database.Badger)
		if err != nil {
			return fmt.Errorf("failure to open badger store: %w", err)
		}
		defer ephem.Close()

		var rdb *clients.Redis
		if opts.Database.Redis.Addr != "" {
			rdb, err = clients.NewRedis(
				clients.RedisWithAddr(opts.Database.Redis.Addr),
				clients.RedisWithPassword(opts.Database.Redis.Password),
				clients.RedisWithDB(opts.Database.Redis.DB),
			)
			if err != nil {
				return fmt.Errorf("failure to connect to redis: %w", err)
			}
		}

		registry, err := chain.NewRegistry(ctx, opts.Chains, rdb)
		if err != nil {
			return fmt.Errorf("failure to build chain registry: %w", err)
		}
		defer registry.Close()

		resolver := compilers.NewResolver(opts.Worker.CompilerCache, opts.Solc.SolcBinRepo, opts.Solc.SolcJsRepo, opts.Vyper.VyperRepo)
		invoker := compilers.NewInvoker(resolver)
		engine := verifier.NewEngine(invoker, registry)

		pool := worker.New(engine, pg, ephem,
			worker.WithSize(opts.Worker.PoolSize),
			worker.WithQueueSize(opts.Worker.QueueSize),
			worker.WithJobTimeout(opts.Worker.JobTimeout),
		)
		pool.Start(ctx)
		defer pool.Close()

		zap.L().Info("Worker pool started", zap.Int("size", opts.Worker.PoolSize), zap.Int("queue_size", opts.Worker.QueueSize))

		similarityTrigger := monitor.NewSimilarityTrigger(
			opts.SourcifyServerURLs,
			&http.Client{Timeout: opts.Worker.JobTimeout},
			opts.SourcifyRequestOptions.MaxRetries,
			opts.SourcifyRequestOptions.RetryDelay,
		)

		monOpts := []monitor.Option{
			monitor.WithFactoryMonitoring(opts.MonitorFactories),
			monitor.WithSimilarityDelay(opts.SimilarityVerification.RequestDelay),
			monitor.WithSimilarityTrigger(similarityTrigger),
		}
		if len(opts.SourcifyServerURLs) > 0 {
			sourcifyClient := sourcify.NewClient(
				sourcify.WithBaseURL(opts.SourcifyServerURLs[0]),
				sourcify.WithRetryOptions(
					sourcify.WithMaxRetries(opts.SourcifyRequestOptions.MaxRetries),
					sourcify.WithDelay(opts.SourcifyRequestOptions.RetryDelay),
				),
			)
			monOpts = append(monOpts, monitor.WithSourcifyFallback(sourcifyClient))
		}

		mon := monitor.New(registry, pool, rdb, opts.DecentralizedStorages.IPFS, monOpts...)

		zap.L().Info("Chain monitor starting", zap.Int("chains", len(opts.Chains)))
		mon.Run(ctx, opts.Chains)

		zap.L().Info("Shutdown signal received, draining worker pool")
		return nil
	},
}

// Init registers the serve command with rootCmd.
func Init(rootCmd *cobra.Command) {
	rootCmd.AddCommand(serveCmd)
}
