// File: cmd/profile.go
package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/adamsbytes/rocinante-sub014/internal/behavior"
	"github.com/adamsbytes/rocinante-sub014/internal/observability"
	"github.com/adamsbytes/rocinante-sub014/internal/profilestore"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newProfileCmd groups the persona management subcommands.
func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and manage behavioral profiles",
	}
	profileCmd.AddCommand(newProfileShowCmd())
	profileCmd.AddCommand(newProfileGenerateCmd())
	profileCmd.AddCommand(newProfileDeleteCmd())
	return profileCmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [account-hash]",
		Short: "Print the stored profile for an account as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			hash := cfg.Engine.AccountHash
			if len(args) == 1 {
				hash = args[0]
			}

			store, closeStore, err := buildStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			rec, err := store.Load(ctx, hash)
			if err != nil {
				return fmt.Errorf("no stored profile for %s: %w", hash, err)
			}

			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

func newProfileGenerateCmd() *cobra.Command {
	var persist bool
	generateCmd := &cobra.Command{
		Use:   "generate [account-hash]",
		Short: "Generate the deterministic persona for an account and print it",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			hash := cfg.Engine.AccountHash
			if len(args) == 1 {
				hash = args[0]
			}
			accountType := behavior.ParseAccountType(cfg.Engine.AccountType)

			profile := behavior.GenerateProfile(hash, accountType, logger)
			rec := profile.Record()

			if persist {
				if profile.IsDefault() {
					return profilestore.ErrSentinelProfile
				}
				store, closeStore, err := buildStore(ctx, cfg, logger)
				if err != nil {
					return err
				}
				defer closeStore()
				if err := store.Save(ctx, rec); err != nil {
					return err
				}
				logger.Info("Persisted generated profile", zap.String("account", hash))
			}

			out, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	generateCmd.Flags().BoolVar(&persist, "save", false, "persist the generated profile to the store")
	return generateCmd
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account-hash>",
		Short: "Delete the stored profile for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			store, closeStore, err := buildStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := store.Delete(ctx, args[0]); err != nil {
				return err
			}
			logger.Info("Deleted profile", zap.String("account", args[0]))
			return nil
		},
	}
}
