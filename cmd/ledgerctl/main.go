// Command ledgerctl drives the reconciliation engine from a terminal using the
// same configuration as the server.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
