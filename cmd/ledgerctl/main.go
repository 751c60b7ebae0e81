package main

import (
	"context"
	"os"

	"ledger/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr, cli.DefaultAppFactory))
}
