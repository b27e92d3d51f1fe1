// Command execagent is a terminal agent that runs code on the user's
// computer to complete natural-language tasks.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
