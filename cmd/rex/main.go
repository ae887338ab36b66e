package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "rex",
	Short: "Run a program on a remote host over an authenticated stream",
	Long: `rex submits an executable, its arguments, and a working directory to a
server over an mTLS-authenticated bidirectional stream. The server spawns
the process, forwards local stdin to it, and streams stdout, stderr, and
the exit code back.`,
	// main prints command errors itself, and an exitCodeError carries only
	// the remote exit code, so cobra's own error and usage output is off.
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	viper.SetEnvPrefix("REX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := rootCmd.Execute(); err != nil {
		if ec, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(ec.ExitCode())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// contextWithSignal returns a context cancelled on SIGINT/SIGTERM, along
// with a cancel func the caller must still invoke to release the signal
// handler once done.
func contextWithSignal(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
