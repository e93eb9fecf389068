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
package migrate_cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/txpull/sourcecheck/db"
	"github.com/txpull/sourcecheck/options"
	"go.uber.org/zap"
)

var withClickhouse bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the content-addressed relational schema (and, optionally, the ClickHouse signature_stats view)",
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts options.Options
		if err := viper.Unmarshal(&opts); err != nil {
			return fmt.Errorf("failure to decode options: %w", err)
		}

		pg, err := db.NewPostgres(cmd.Context(), opts.Database.Postgres)
		if err != nil {
			return fmt.Errorf("failure to connect to postgres: %w", err)
		}
		defer pg.Close()

		zap.L().Info("Applying postgres schema", zap.String("database", opts.Database.Postgres.Database))
		if err := pg.Migrate(cmd.Context()); err != nil {
			return fmt.Errorf("failure to migrate postgres schema: %w", err)
		}

		if withClickhouse {
			ch, err := db.NewClickHouse(cmd.Context(), opts.Database.Clickhouse)
			if err != nil {
				return fmt.Errorf("failure to connect to clickhouse: %w", err)
			}

			zap.L().Info("Applying clickhouse schema", zap.String("database", opts.Database.Clickhouse.Database))
			if err := ch.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("failure to migrate clickhouse schema: %w", err)
			}
		}

		zap.L().Info("Migration complete")
		return nil
	},
}

// Init registers the migrate command with rootCmd.
func Init(rootCmd *cobra.Command) {
	migrateCmd.Flags().BoolVar(&withClickhouse, "with-clickhouse", false,
		"also apply the signature_stats materialized view schema to ClickHouse")
	rootCmd.AddCommand(migrateCmd)
}
