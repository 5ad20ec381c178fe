package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/bher20/slotariff/internal/auth"
)

var (
	tokenName    string
	tokenRole    string
	tokenExpires string
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Generate an API token and the config entry holding its hash",
	Long: `Generate a random API token. The secret is printed once; only its
bcrypt hash goes into the configuration.

Expiry accepts "never", a Go duration (720h), days or weeks (30d, 2w),
or a date (2026-12-31, 31.12.2026 23:59).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		switch tokenRole {
		case auth.RoleAdmin, auth.RoleOperator, auth.RoleViewer:
		default:
			return fmt.Errorf("unknown role %q", tokenRole)
		}
		expires, err := auth.ParseExpiry(tokenExpires, time.Now())
		if err != nil {
			return err
		}
		secret, hash, err := auth.GenerateToken()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "secret: %s\n\n", secret)
		fmt.Fprintln(out, "auth:")
		fmt.Fprintln(out, "  tokens:")
		fmt.Fprintf(out, "    - name: %s\n", tokenName)
		fmt.Fprintf(out, "      role: %s\n", tokenRole)
		fmt.Fprintf(out, "      hash: %q\n", hash)
		if expires != nil {
			fmt.Fprintf(out, "      expires_at: %s\n", expires.Format(time.RFC3339))
		}
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenName, "name", "default", "token name")
	tokenCmd.Flags().StringVar(&tokenRole, "role", auth.RoleViewer, "admin, operator or viewer")
	tokenCmd.Flags().StringVar(&tokenExpires, "expires", "never", "expiry")

	rootCmd.AddCommand(tokenCmd)
}
