package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/open-edge-platform/imagecraft/internal/logger"
)

// createRootCommand assembles the imagecraft command tree.
func createRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "imagecraft",
		Short: "Declarative bootable disk image builder",
		Long: `imagecraft assembles a partitioned disk image from a single TOML
manifest: it creates the backing file, writes a GPT partition table, creates
filesystems, builds every declared component in dependency order, and
populates the mounted partitions with the results.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(createBuildCommand())
	rootCmd.AddCommand(createCheckoutCommand())

	return rootCmd
}

func main() {
	defer logger.Sync()

	if err := createRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
