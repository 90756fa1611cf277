package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/iliyamo/table-reservation/internal/clock"
	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/repository"
	"github.com/iliyamo/table-reservation/internal/service"
)

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark lapsed reservations overdue once and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			_, db, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			events, pub, err := newEvents(config.LoadEventsConfig())
			if err != nil {
				return err
			}
			defer pub.Close()

			sweepCfg := config.LoadSweepConfig()
			sweeper := service.NewSweeper(repository.NewReservationRepo(db), clock.System{}, sweepCfg.Interval, sweepCfg.Grace, events)
			n, err := sweeper.SweepOnce(ctx)
			if err != nil {
				return err
			}
			slog.Info("overdue sweep", "marked", n)
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d reservation(s) overdue\n", n)
			return nil
		},
	}
}
