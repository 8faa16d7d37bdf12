package cmd

import (
	"fmt"

	"veilslot/utils"

	"github.com/spf13/cobra"
)

func newPriceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "price <decimal>",
		Short: "Show a decimal price in smallest units",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			units, err := utils.ParsePrice(args[0])
			if err != nil {
				return fmt.Errorf("%q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %d units\n", utils.FormatPrice(units), units)
			return nil
		},
	}
}
