package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// accountCmd represents the account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Print account for the specific wallet",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, accountID, err := loadKey(cmd)
		if err != nil {
			return err
		}

		fmt.Println(accountID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountCmd)
}
