package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sadopc/coursematrix/internal/cli"
	"github.com/sadopc/coursematrix/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.App{
		Config:        config.Load(),
		IsInteractive: isInteractive,
	}
	return cli.NewRootCmd(app).Execute()
}

func isInteractive() bool {
	return isTerminal(os.Stdin) && isTerminal(os.Stdout)
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
