package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guildwatch/dbmigrate/internal/config"
	"github.com/guildwatch/dbmigrate/internal/legacy"
	"github.com/guildwatch/dbmigrate/internal/migrate"
	"github.com/guildwatch/dbmigrate/internal/schema"
	"github.com/guildwatch/dbmigrate/internal/target"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "gwdb",
		Short:        "Database provisioning and legacy import for the guildwatch bot",
		Version:      config.Version,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("db-host", "localhost", "target database host")
	pf.Int("db-port", 5432, "target database port")
	pf.String("db-user", "guildwatch", "target database user")
	pf.String("db-password", "", "target database password")
	pf.String("db-name", "guildwatch", "target database name")
	pf.String("db-sslmode", "disable", "target database sslmode")
	pf.Int("db-max-open-conns", 10, "max open connections in the pool")
	pf.Int("db-max-idle-conns", 5, "max idle connections in the pool")
	pf.Duration("db-conn-max-lifetime", 5*time.Minute, "max lifetime of a pooled connection")

	// Bind flags to viper. Viper keys use underscores (db_host) so they
	// match the env var suffix after stripping the GWDB_ prefix.
	bindFlag := func(viperKey, flagName string) {
		_ = viper.BindPFlag(viperKey, pf.Lookup(flagName))
	}
	bindFlag("db_host", "db-host")
	bindFlag("db_port", "db-port")
	bindFlag("db_user", "db-user")
	bindFlag("db_password", "db-password")
	bindFlag("db_name", "db-name")
	bindFlag("db_sslmode", "db-sslmode")
	bindFlag("db_max_open_conns", "db-max-open-conns")
	bindFlag("db_max_idle_conns", "db-max-idle-conns")
	bindFlag("db_conn_max_lifetime", "db-conn-max-lifetime")

	// GWDB_DB_HOST -> "db_host", GWDB_DB_PORT -> "db_port", etc.
	viper.SetEnvPrefix("GWDB")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	rootCmd.AddCommand(initCmd(), importCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the target schema if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := target.Open(config.Load())
			if err != nil {
				return fmt.Errorf("connect to target database: %w", err)
			}
			defer store.Close() //nolint:errcheck

			if err := schema.Ensure(cmd.Context(), store.DB()); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			version, err := schema.Version(cmd.Context(), store.DB())
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			fmt.Printf("Schema is at version %d.\n", version)
			return nil
		},
	}
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <legacy.db>",
		Short: "Import data from a legacy sqlite database",
		Long: `Import characters, deaths, level ups, server properties, roles and events
from the old bot's sqlite database into the target schema. Safe to re-run:
rows the target already holds are skipped and counted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := target.Open(config.Load())
			if err != nil {
				return fmt.Errorf("connect to target database: %w", err)
			}
			defer store.Close() //nolint:errcheck

			if err := schema.Ensure(cmd.Context(), store.DB()); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			src, err := legacy.Open(args[0])
			if err != nil {
				return err
			}
			defer src.Close() //nolint:errcheck

			rep, runErr := migrate.New(src, store).Run(cmd.Context())
			printReport(rep)
			return runErr
		},
	}
}

func printReport(rep *migrate.Report) {
	fmt.Printf("Characters: %d\n", rep.Characters)
	fmt.Printf("Deaths: %d\n", rep.Deaths)
	if rep.SkippedDeaths > 0 {
		fmt.Printf("Skipped %d duplicate deaths.\n", rep.SkippedDeaths)
	}
	fmt.Printf("Level ups: %d\n", rep.LevelUps)
	if rep.SkippedLevelUps > 0 {
		fmt.Printf("Skipped %d duplicate level ups.\n", rep.SkippedLevelUps)
	}
	fmt.Printf("Server properties: %d (skipped %d)\n", rep.Properties, rep.SkippedProperties)
	fmt.Printf("Server prefixes: %d (skipped %d)\n", rep.Prefixes, rep.SkippedPrefixes)
	fmt.Printf("Auto roles: %d (skipped %d)\n", rep.AutoRoles, rep.SkippedAutoRoles)
	fmt.Printf("Joinable roles: %d (skipped %d)\n", rep.JoinableRoles, rep.SkippedJoinableRoles)
	fmt.Printf("Events: %d\n", rep.Events)
	fmt.Printf("Event subscribers: %d (skipped %d)\n", rep.Subscribers, rep.SkippedSubscribers)
	fmt.Printf("Event participants: %d (skipped %d, dropped %d)\n",
		rep.Participants, rep.SkippedParticipants, rep.DroppedParticipants)
}
