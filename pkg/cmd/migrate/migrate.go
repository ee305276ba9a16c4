package migrate

import (
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/airsportlive/airsports-calculator-go/log"
	"github.com/airsportlive/airsports-calculator-go/pkg/config"
	"github.com/airsportlive/airsports-calculator-go/pkg/db/migrate"
	"github.com/airsportlive/airsports-calculator-go/pkg/utils"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration()
		},
	}
	cmd.Flags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"60s",
		"max duration to wait for the database at startup")
	return cmd
}

func startMigration() error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	parsed, err := url.Parse(config.DB)
	if err != nil {
		return err
	}
	if err = utils.WaitForTCP(parsed.Host, timeout); err != nil {
		log.Error("database not ready", log.ErrorField(err))
		return err
	}

	log.Info("Migrating database")
	if err := migrate.MigrateDb(config.DB); err != nil {
		log.Error("migration failed", log.ErrorField(err))
		return err
	}
	log.Info("Migration done")
	return nil
}
