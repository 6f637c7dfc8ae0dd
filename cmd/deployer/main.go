// Command deployer publishes build artifacts and CloudFormation templates to S3.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitConfigError = 4
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "deployer",
		Short:        "Sync release artifacts to S3",
		Version:      versionString(),
		SilenceUsage: true,
	}
	root.AddCommand(newSyncCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case deperrors.IsConfiguration(err):
		return exitConfigError
	default:
		return exitFailure
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}
