package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "voxflow",
		Usage:                 "Media translation pipeline: transcribe, translate and synthesize uploaded media",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			runCommand(),
			executeCommand(),
			validateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
