package cmd

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

type balance struct {
	Account database.AccountID `json:"account"`
	Balance decimal.Decimal    `json:"balance"`
}

// balanceCmd represents the balance command
var balanceCmd = &cobra.Command{
	Use:   "balance [account]",
	Short: "Print the balance of the wallet or the named account",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			return runBalance(database.AccountID(args[0]))
		}

		_, accountID, err := loadKey(cmd)
		if err != nil {
			return err
		}

		return runBalance(accountID)
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}

func runBalance(accountID database.AccountID) error {
	var b balance
	if err := call(http.MethodGet, "/v1/accounts/"+string(accountID), nil, &b); err != nil {
		return err
	}

	fmt.Println("For Account:", b.Account)
	fmt.Println(b.Balance)

	return nil
}
