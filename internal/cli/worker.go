// Package cli holds the care-worker command tree.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/noah-isme/care-reminder-api/internal/models"
	"github.com/noah-isme/care-reminder-api/pkg/jobs"
)

// Scheduler is the batch driver the worker commands operate on.
type Scheduler interface {
	Start(ctx context.Context)
	Stop()
	RunOnce(ctx context.Context, kind jobs.Kind) (int, error)
	Sweep(ctx context.Context) (*models.SweepReport, error)
}

// SchedulerFactory builds the scheduler lazily so --help never touches the database.
// The returned closer releases whatever the factory opened.
type SchedulerFactory func(ctx context.Context) (Scheduler, func() error, error)

// NewRootCommand creates the care-worker command tree.
func NewRootCommand(factory SchedulerFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "care-worker",
		Short:         "Batch driver for care event generation, adjustment and sweeping",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newPassCommand(factory, "generate", "Generate care events for every active owner once", jobs.KindGenerate))
	cmd.AddCommand(newPassCommand(factory, "adjust", "Run the priority adjuster for every active owner once", jobs.KindAdjust))
	cmd.AddCommand(newSweepCommand(factory))
	cmd.AddCommand(newRunCommand(factory))

	return cmd
}

func newPassCommand(factory SchedulerFactory, use, short string, kind jobs.Kind) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScheduler(cmd.Context(), factory, func(ctx context.Context, s Scheduler) error {
				defer s.Stop()
				queued, err := s.RunOnce(ctx, kind)
				if err != nil {
					return fmt.Errorf("%s pass: %w", use, err)
				}
				return printf(cmd.OutOrStdout(), "%s: %d owner(s) processed\n", use, queued)
			})
		},
	}
}

func newSweepCommand(factory SchedulerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Mark overdue events missed and expire lapsed alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScheduler(cmd.Context(), factory, func(ctx context.Context, s Scheduler) error {
				report, err := s.Sweep(ctx)
				if err != nil {
					return fmt.Errorf("sweep: %w", err)
				}
				return printf(cmd.OutOrStdout(), "sweep: %d missed, %d alert(s) expired\n", report.Marked, report.AlertsExpired)
			})
		},
	}
}

func newRunCommand(factory SchedulerFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the periodic scheduler until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withScheduler(cmd.Context(), factory, func(ctx context.Context, s Scheduler) error {
				s.Start(ctx)
				<-ctx.Done()
				s.Stop()
				return nil
			})
		},
	}
}

func withScheduler(ctx context.Context, factory SchedulerFactory, fn func(context.Context, Scheduler) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	scheduler, closer, err := factory(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closer != nil {
			_ = closer()
		}
	}()
	return fn(ctx, scheduler)
}

func printf(w io.Writer, format string, args ...interface{}) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
