package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Checkout command flags
var (
	checkoutDestination string = "." // Directory the recipe is checked out into
)

// createCheckoutCommand creates the checkout subcommand. The recipe-fetch
// backend is not part of this build; the command validates its arguments
// and reports that clearly rather than leaving the subcommand absent.
func createCheckoutCommand() *cobra.Command {
	checkoutCmd := &cobra.Command{
		Use:   "checkout [flags] RECIPE",
		Short: "Fetch a named build recipe into a local directory",
		Args:  cobra.ExactArgs(1),
		RunE:  executeCheckout,
	}

	checkoutCmd.Flags().StringVar(&checkoutDestination, "destination", ".",
		"Directory to check the recipe out into")

	return checkoutCmd
}

// executeCheckout handles the checkout command execution logic
func executeCheckout(_ *cobra.Command, args []string) error {
	return fmt.Errorf("checkout %q: recipe checkout is not available in this build", args[0])
}
