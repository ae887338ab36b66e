package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/azazo1/rex/internal/configdir"
	"github.com/azazo1/rex/internal/errx"
	"github.com/azazo1/rex/pkg/executeservice"
)

var serverCmd = &cobra.Command{
	Use:     "server",
	Aliases: []string{"s"},
	Short:   "Serve the execute RPC over mTLS",
	RunE:    runServer,
}

func init() {
	serverCmd.Flags().StringP("bind", "b", "[::1]:30521", "Address to bind (env: REX_BIND)")
	serverCmd.Flags().StringP("cert", "c", "", "Certificate directory (default: $HOME/.config/rex, env: REX_CERT_DIR)")

	rootCmd.AddCommand(serverCmd)
}

func runServer(cmd *cobra.Command, args []string) error {
	viper.BindPFlag("bind", cmd.Flags().Lookup("bind"))
	viper.BindPFlag("cert-dir", cmd.Flags().Lookup("cert"))

	bind := viper.GetString("bind")
	certDir := viper.GetString("cert-dir")

	if certDir == "" {
		dir, err := configdir.Default()
		if err != nil {
			return errx.Wrap(ErrResolveCertDir, err)
		}
		certDir = dir
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := executeservice.Listen(bind, certDir, logger); err != nil {
		return errx.Wrap(ErrListenAndServe, err)
	}
	return nil
}
