package cmd

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
)

var (
	to    string
	value string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a signed transfer transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSend(cmd)
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&to, "to", "t", "", "Account receiving the coins.")
	sendCmd.Flags().StringVarP(&value, "value", "v", "", "Value to send.")
	sendCmd.Flags().StringVarP(&reason, "reason", "r", "", "Why the coins are sent.")
}

func runSend(cmd *cobra.Command) error {
	privateKey, accountID, err := loadKey(cmd)
	if err != nil {
		return err
	}

	toAccount, err := database.ToAccountID(to)
	if err != nil {
		return err
	}

	amount, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("parsing value: %w", err)
	}

	tx, err := database.NewTx(accountID, toAccount, amount, database.KindTransfer, database.StatusPending, reason)
	if err != nil {
		return err
	}

	if err := tx.Sign(privateKey); err != nil {
		return err
	}

	if err := call(http.MethodPost, "/v1/tx/submit", tx, nil); err != nil {
		return err
	}

	fmt.Println(tx.ID)
	return nil
}
