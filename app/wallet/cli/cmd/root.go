// Package cmd contains wallet app commands.
package cmd

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/ledger/foundation/blockchain/database"
	"github.com/adamwoolhether/ledger/foundation/blockchain/signature"
)

const keyExt = ".ecdsa"

var url string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Simple ledger wallet",
}

// Execute runs the wallet and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("account-path", "p", "zblock/accounts/", "Path to the directory with private keys.")
	rootCmd.PersistentFlags().StringP("account", "a", "private", "The account key to use.")
	rootCmd.PersistentFlags().StringVarP(&url, "url", "u", "http://localhost:8080", "Url of the node.")
}

func keyPath(acctName, path string) string {
	if !strings.HasSuffix(acctName, keyExt) {
		acctName += keyExt
	}

	return filepath.Join(path, acctName)
}

// loadKey reads the private key named by the account flags.
func loadKey(cmd *cobra.Command) (*ecdsa.PrivateKey, database.AccountID, error) {
	acctName, err := cmd.Flags().GetString("account")
	if err != nil {
		return nil, "", err
	}

	path, err := cmd.Flags().GetString("account-path")
	if err != nil {
		return nil, "", err
	}

	privateKey, err := crypto.LoadECDSA(keyPath(acctName, path))
	if err != nil {
		return nil, "", err
	}

	return privateKey, database.AccountID(signature.Address(privateKey.PublicKey)), nil
}

var client = http.Client{Timeout: 30 * time.Second}

// call sends the value as JSON to the node and decodes the reply into
// resp when it is not nil.
func call(method string, endpoint string, value any, resp any) error {
	var body io.Reader
	if value != nil {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url+endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	r, err := client.Do(req)
	if err != nil {
		return err
	}
	defer r.Body.Close()

	if r.StatusCode >= http.StatusBadRequest {
		var er struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(r.Body).Decode(&er); err != nil {
			return fmt.Errorf("node returned %s", r.Status)
		}
		return fmt.Errorf("node returned %s: %s", r.Status, er.Error)
	}

	if resp == nil {
		return nil
	}

	return json.NewDecoder(r.Body).Decode(resp)
}
