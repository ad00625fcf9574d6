package main

import (
	"context"
	"fmt"

	"donorbridge/internal/db"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var reconcileCommand = &cli.Command{
	Name:  "reconcile",
	Usage: "Repair profile verification fields that drifted from donor and school records",
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

		notifier := newNotifier(cfg, logger)
		defer notifier.Close()

		// Reconcile never registers identities.
		svc := newApprovalService(pool, nil, notifier, logger)

		report, err := svc.Reconcile(ctx)
		if err != nil {
			return fmt.Errorf("failed to reconcile profiles: %w", err)
		}

		logger.WithFields(logrus.Fields{
			"checked":  report.Checked,
			"repaired": report.Repaired,
			"failed":   report.Failed,
		}).Info("reconcile complete")

		if report.Failed > 0 {
			return fmt.Errorf("%d profiles could not be repaired", report.Failed)
		}

		return nil
	},
}
