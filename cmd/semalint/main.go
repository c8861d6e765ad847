// Command semalint validates semantic model metadata.
package main

import (
	"os"

	"github.com/inteliome-labs/semalint/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
