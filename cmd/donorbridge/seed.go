package main

import (
	"context"
	"fmt"

	"donorbridge/internal/db"
	"donorbridge/internal/seed"
	"donorbridge/internal/store"

	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with staff accounts and demo records",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "demo",
			Usage: "Also create demo donors and schools",
			Value: true,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		logger := newLogger(cfg)
		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logger.Info("Connected to database")

		repos := seed.Repositories{
			Profiles: store.NewProfileRepository(pool),
			Donors:   store.NewDonorRepository(pool),
			Schools:  store.NewSchoolRepository(pool),
		}

		if err := seed.SeedStaff(ctx, repos, logger); err != nil {
			return err
		}

		if !c.Bool("demo") {
			return nil
		}

		return seed.SeedFakeUsers(ctx, repos, logger)
	},
}
