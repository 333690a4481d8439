// Command settle prints balances and settlement suggestions for a group
// described in a TOML ledger file.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
