package main

import (
	"time"

	"FlashChat/tools/errs"
	"FlashChat/tools/security"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
)

// 本地调试用：签发一个访问令牌
func newTokenCmd() *cobra.Command {
	var (
		ttl    time.Duration
		scopes []string
	)
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue an access token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := loadConfig()
			if err != nil {
				return err
			}
			cfg := loader.Config()
			if cfg.JWT.Secret == "" {
				return errs.ErrValidation.WrapMsg("jwt.secret is required")
			}
			opts := jwtOptions(cfg, clock.New())
			if ttl > 0 {
				opts.TTL = ttl
			}
			token, exp, err := security.Generate(opts, args[0], scopes)
			if err != nil {
				return err
			}
			cmd.Println(token)
			cmd.PrintErrf("expires %s\n", exp.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "override jwt.ttl")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "scopes to embed")
	return cmd
}
