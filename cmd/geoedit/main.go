// Command geoedit inspects map data and saved edit histories.
package main

import (
	"os"

	"github.com/kilupskalvis/geoedit/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
