package cli

import (
	"fmt"
	"time"

	"examprep-service/internal/config"
	transport "examprep-service/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewTokenCmd mints a bearer token for a student, for local testing.
func NewTokenCmd(configPath *string) *cobra.Command {
	var studentID string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed token for a student",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			auth, err := newTokenAuth(cfg)
			if err != nil {
				return err
			}
			token, err := auth.Issue(studentID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&studentID, "student", "", "student id to embed in the token")
	_ = cmd.MarkFlagRequired("student")
	return cmd
}

func newTokenAuth(cfg config.Config) (*transport.TokenAuth, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret not configured")
	}
	return transport.NewTokenAuth(cfg.Auth.JWTSecret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour)), nil
}
