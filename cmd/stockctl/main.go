package main

import (
	"context"
	"os"

	"stockledger-backend/internal/cli"
)

func main() {
	root := cli.NewRootCommand(cli.OpenFromConfig)
	if err := root.ExecuteContext(context.Background()); err != nil {
		format, _ := root.PersistentFlags().GetString("format")
		cli.WriteError(os.Stderr, format, err)
		os.Exit(cli.GetExitCode(err))
	}
}
