// Package main is the lanemask command itself.
package main

import (
	"os"

	"go.viam.com/lanemask/cli"
	"go.viam.com/lanemask/logging"
)

func main() {
	app := cli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		logging.NewLogger("lanemask").Fatal(err)
	}
}
