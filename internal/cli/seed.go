package cli

import (
	"fmt"

	"examprep-service/internal/config"
	"examprep-service/internal/content"
	"examprep-service/internal/infra/postgres"
	"examprep-service/internal/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads the built-in subjects, quizzes, quests and demo students into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with the default catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}
			log := logging.New(serviceName, cfg.Log.Level)

			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()

			if _, err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			res, err := postgres.Seed(cmd.Context(), db, content.Default())
			if err != nil {
				return err
			}
			log.WithFields(logrus.Fields{
				"subjects": res.Subjects,
				"quizzes":  res.Quizzes,
				"quests":   res.Quests,
				"students": res.Students,
			}).Info("seed complete")
			return nil
		},
	}
}
