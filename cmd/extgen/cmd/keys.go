package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/extgen/internal/core/auth"
	"github.com/solatis/extgen/internal/core/config"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys for the gRPC service",
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Issue an API key; the key is printed once",
	Args:  cobra.NoArgs,
	RunE:  runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke API_KEY_ID",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysCreateCmd, keysRevokeCmd)

	keysCreateCmd.Flags().String("workspace", "", "workspace the key belongs to")
	keysCreateCmd.Flags().String("name", "", "human-readable key name")
	keysCreateCmd.Flags().String("secret-id", "", "HMAC secret to sign with (required when several are configured)")
	keysCreateCmd.MarkFlagRequired("workspace")
}

func newAuthenticator(queries auth.Queries) (*auth.Authenticator, error) {
	secrets, err := config.HMACSecrets()
	if err != nil {
		return nil, fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) == 0 {
		return nil, fmt.Errorf("no HMAC secrets configured (set EG_HMAC_SECRET environment variable)")
	}
	return auth.NewAuthenticator(secrets, queries), nil
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	database, queries, err := openCatalog()
	if err != nil {
		return err
	}
	defer database.Close()

	authenticator, err := newAuthenticator(queries)
	if err != nil {
		return err
	}

	workspace, _ := cmd.Flags().GetString("workspace")
	name, _ := cmd.Flags().GetString("name")
	secretID, _ := cmd.Flags().GetString("secret-id")

	issued, err := authenticator.IssueKey(cmd.Context(), workspace, name, secretID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "api_key_id: %s\n", issued.ID)
	fmt.Fprintf(out, "workspace:  %s\n", issued.WorkspaceID)
	fmt.Fprintf(out, "secret_id:  %s\n", issued.SecretID)
	fmt.Fprintf(out, "key:        %s\n", issued.Key)
	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	database, queries, err := openCatalog()
	if err != nil {
		return err
	}
	defer database.Close()

	authenticator, err := newAuthenticator(queries)
	if err != nil {
		return err
	}

	if err := authenticator.RevokeKey(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "revoked %s\n", args[0])
	return nil
}
