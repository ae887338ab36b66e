package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/azazo1/rex/internal/configdir"
	"github.com/azazo1/rex/internal/errx"
	"github.com/azazo1/rex/pkg/executor"
)

var clientCmd = &cobra.Command{
	Use:     "client [flags] <executable> [-- args...]",
	Aliases: []string{"c"},
	Short:   "Run a command on a rex server",
	Long: `Run a command on a rex server over an authenticated stream.

Local stdin is forwarded to the remote process and its stdout/stderr are
streamed back live. Arguments for the remote executable go after --:

  rex client -- bash -c "echo hi"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runClient,
}

func init() {
	clientCmd.Flags().StringP("address", "a", "https://[::1]:30521", "Server address (env: REX_ADDRESS)")
	clientCmd.Flags().StringP("current-dir", "d", "", "Working directory for the remote process (default: alongside the resolved executable)")
	clientCmd.Flags().BoolP("leak", "l", false, "Leave the remote process running if this client disconnects (env: REX_LEAK)")
	clientCmd.Flags().StringP("cert", "c", "", "Certificate directory (default: $HOME/.config/rex, env: REX_CERT_DIR)")

	rootCmd.AddCommand(clientCmd)
}

// bindClientFlags binds this invocation's flags into viper just before use,
// rather than at init time, so that the "cert-dir" key it shares with the
// server and gen-cert subcommands always resolves against the flag set that
// actually parsed this process's arguments.
func bindClientFlags(cmd *cobra.Command) {
	viper.BindPFlag("address", cmd.Flags().Lookup("address"))
	viper.BindPFlag("current-dir", cmd.Flags().Lookup("current-dir"))
	viper.BindPFlag("leak", cmd.Flags().Lookup("leak"))
	viper.BindPFlag("cert-dir", cmd.Flags().Lookup("cert"))
}

func runClient(cmd *cobra.Command, args []string) error {
	bindClientFlags(cmd)
	address := viper.GetString("address")
	currentDir := viper.GetString("current-dir")
	leak := viper.GetBool("leak")
	certDir := viper.GetString("cert-dir")

	if certDir == "" {
		dir, err := configdir.Default()
		if err != nil {
			return errx.Wrap(ErrResolveCertDir, err)
		}
		certDir = dir
	}

	client, err := executor.Connect(address, certDir)
	if err != nil {
		return errx.Wrap(ErrConnect, err)
	}
	defer client.Close()

	ctx, cancel := contextWithSignal(cmd.Context())
	defer cancel()

	opts := executor.ExecuteOptions{
		Executable: args[0],
		Args:       args[1:],
		Leak:       leak,
	}
	if cmd.Flags().Changed("current-dir") {
		opts.CurrentDir = &currentDir
	}

	code, err := client.ExecuteStream(ctx, opts, os.Stdin, os.Stdout, os.Stderr, slog.Default())
	if err != nil {
		return errx.Wrap(ErrExecute, err)
	}
	if code == nil {
		if ctx.Err() != nil {
			reportInterrupt(leak)
		}
		return nil
	}
	return commandExit(*code)
}

// reportInterrupt tells the user what became of the remote process after a
// local SIGINT/SIGTERM cancelled the stream before an exit code arrived.
// Whether stdin is a terminal only changes the wording: an interactive
// session was plausibly left attended to notice the message either way.
func reportInterrupt(leak bool) {
	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	switch {
	case leak:
		fmt.Fprintln(os.Stderr, "rex: disconnected; the remote process was left running (--leak)")
	case interactive:
		fmt.Fprintln(os.Stderr, "rex: interrupted; the remote process is being killed")
	default:
		fmt.Fprintln(os.Stderr, "rex: disconnected before the remote process reported an exit code")
	}
}
