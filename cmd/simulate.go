// File: cmd/simulate.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/adamsbytes/rocinante-sub014/internal/behavior"
	"github.com/adamsbytes/rocinante-sub014/internal/config"
	"github.com/adamsbytes/rocinante-sub014/internal/engine"
	"github.com/adamsbytes/rocinante-sub014/internal/observability"
)

// newSimulateCmd runs a dry session: the engine ticks against a synthetic
// game state and logs the decisions it would hand to an input layer.
func newSimulateCmd() *cobra.Command {
	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a behavioral session against a synthetic game state",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlag("engine.session_length", cmd.Flags().Lookup("duration")); err != nil {
				return err
			}
			if err := viper.BindPFlag("engine.account_hash", cmd.Flags().Lookup("account")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			// Re-resolve config so the bound flags take effect.
			cfg, err := reloadConfig()
			if err != nil {
				return err
			}
			task, err := cmd.Flags().GetString("task")
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if cfg.Engine.SessionLength > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Engine.SessionLength)
				defer cancel()
			}

			store, closeStore, err := buildStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			sess := engine.New(cfg.Engine, store, nil, nil, logger)
			if err := sess.Start(ctx); err != nil {
				return err
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				ticker := time.NewTicker(cfg.Engine.TickInterval)
				defer ticker.Stop()

				var ticks, afk, emergencies, mistakes int64
				for {
					select {
					case <-gctx.Done():
						logger.Info("Simulation finished",
							zap.Int64("ticks", ticks),
							zap.Int64("afkTicks", afk),
							zap.Int64("emergencies", emergencies),
							zap.Int64("mistakes", mistakes))
						return nil
					case <-ticker.C:
					}

					d, err := sess.Tick(gctx, behavior.Snapshot{TaskName: task})
					if err != nil {
						if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
							return nil
						}
						return err
					}
					ticks++
					if !d.CanAct {
						afk++
					}
					if d.EmergencyTask != nil {
						emergencies++
					}
					if !d.Inefficiency.None() {
						mistakes++
					}

					logger.Debug("Tick decision",
						zap.Int64("tick", d.Tick),
						zap.String("activity", d.Activity.String()),
						zap.String("attention", d.Attention.String()),
						zap.Duration("jitter", d.Jitter),
						zap.Float64("fatigue", d.FatigueLevel),
						zap.Bool("shouldBreak", d.ShouldTakeBreak))
				}
			})

			runErr := g.Wait()

			// Stop with a background context so persistence survives the
			// signal that ended the run.
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := sess.Stop(stopCtx); err != nil {
				return err
			}
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				return runErr
			}
			fmt.Fprintln(cmd.OutOrStdout(), "session", sess.SessionID(), "complete")
			return nil
		},
	}

	simulateCmd.Flags().Duration("duration", 0, "how long to run (0 means until interrupted)")
	simulateCmd.Flags().String("account", "", "account hash to simulate (defaults to config)")
	simulateCmd.Flags().String("task", "WOODCUTTING", "synthetic task name fed to the engine")
	return simulateCmd
}

// reloadConfig re-unmarshals the viper state after flag binding so flag
// overrides land in the typed config.
func reloadConfig() (*config.Config, error) {
	return config.NewConfigFromViper(viper.GetViper())
}
