package main

import (
	"fmt"
	"time"

	"github.com/iwvelando/mortgage-simulator/internal/auth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTokenCommand(root *rootOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token for the proposal API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, logger, err := root.load()
			if err != nil {
				return err
			}
			defer func() {
				_ = logger.Sync()
			}()

			token, err := auth.NewService(conf.Auth).Issue(subject, ttl)
			if err != nil {
				return err
			}
			logger.Info("issued admin token",
				zap.String("op", "main.token"),
				zap.String("subject", subject),
			)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default auth.tokenTTL)")
	return cmd
}
