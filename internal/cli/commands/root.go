// Copyright 2024 BVFS Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package commands implements the bvfsctl cobra command tree: an
// operator-facing demonstration harness over the bvfs library, wired
// against a configured catalog session.
package commands

import (
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"bvfs/internal/catalog"
	"bvfs/internal/config"
)

var (
	version = "dev"
	commit  = "none"
)

var (
	flagConfig  string
	flagDSN     string
	flagDialect string

	cat *catalog.Session
	cfg *config.Config
)

// SetVersion sets the version info for --version.
func SetVersion(v, c string) {
	version = v
	commit = c
	rootCmd.Version = fmt.Sprintf("%s (%s)", version, commit)
}

var rootCmd = &cobra.Command{
	Use:   "bvfsctl",
	Short: "Operator CLI for the backup-catalog virtual filesystem projection",
	Long:  `bvfsctl drives the bvfs library's catalog-projection operations (refresh, gc, ls, restore) against a configured catalog.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}

		cfg = config.Default()
		if flagConfig != "" {
			loaded, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if flagDSN != "" {
			cfg.DSN = flagDSN
		}
		if flagDialect != "" {
			cfg.Dialect = flagDialect
		}
		if cfg.DSN == "" {
			return fmt.Errorf("no catalog DSN configured: pass --dsn or set dsn in --config")
		}

		if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
			log.SetLevel(lvl)
		}

		tag, err := cfg.Tag()
		if err != nil {
			return err
		}
		sess, err := catalog.Open(tag, cfg.DSN)
		if err != nil {
			return fmt.Errorf("open catalog: %w", err)
		}
		if err := sess.SetBusyTimeout(cmd.Context(), cfg.BusyTimeoutMS); err != nil {
			_ = sess.Close()
			return fmt.Errorf("set busy timeout: %w", err)
		}
		cat = sess

		log.WithFields(log.Fields{
			"component":     "bvfsctl",
			"invocation_id": uuid.New().String(),
			"command":       cmd.Name(),
			"dialect":       tag,
		}).Debug("invoking command")
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if cat == nil {
			return nil
		}
		return cat.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "", "catalog DSN, overrides config")
	rootCmd.PersistentFlags().StringVar(&flagDialect, "dialect", "", "catalog dialect (sqlite|mysql|postgres|generic), overrides config")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.SetVersionTemplate("bvfsctl version {{.Version}}\n")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
