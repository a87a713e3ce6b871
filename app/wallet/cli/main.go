package main

import (
	"github.com/adamwoolhether/ledger/app/wallet/cli/cmd"
)

func main() {
	cmd.Execute()
}
