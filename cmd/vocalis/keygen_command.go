package main

import (
	"encoding/base64"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"vocalis/internal/crypto"
)

func newKeygenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate the server keypair if none exists",
		Long: `Generate the RSA keypair the daemon uses for the key-exchange
handshake. An existing keypair is left untouched; delete the key files
first to rotate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			keys, err := crypto.LoadOrGenerateServerKeys(cfg.KeyDir, cfg.Keys.ServerKeyBits)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Private key: %s\n", filepath.Join(cfg.KeyDir, crypto.ServerPrivateKeyFile))
			fmt.Fprintf(out, "Public key:  %s\n", filepath.Join(cfg.KeyDir, crypto.ServerPublicKeyFile))
			fmt.Fprintf(out, "Public key (base64):\n%s\n", base64.StdEncoding.EncodeToString(keys.PublicPEM))
			return nil
		},
	}
}
