package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

var reason string

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Submit a request for an operator to decide",
}

var mintCmd = &cobra.Command{
	Use:   "mint <amount>",
	Short: "Ask the treasury to issue coins to the wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, accountID, err := loadKey(cmd)
		if err != nil {
			return err
		}

		body := map[string]string{
			"from":   string(accountID),
			"amount": args[0],
			"reason": reason,
		}

		return submitRequest("/v1/requests/mint", body)
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer <to> <amount>",
	Short: "Ask to move coins from the wallet to another account",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, accountID, err := loadKey(cmd)
		if err != nil {
			return err
		}

		body := map[string]string{
			"from":   string(accountID),
			"to":     args[0],
			"amount": args[1],
			"reason": reason,
		}

		return submitRequest("/v1/requests/transfer", body)
	},
}

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.AddCommand(mintCmd, transferCmd)
	requestCmd.PersistentFlags().StringVarP(&reason, "reason", "r", "", "Why the request is made.")
}

func submitRequest(endpoint string, body map[string]string) error {
	var req database.Request
	if err := call(http.MethodPost, endpoint, body, &req); err != nil {
		return err
	}

	fmt.Println(req.ID)
	return nil
}
