package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/voxflow/voxflow/pkg/states"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate a graph definition file",
		ArgsUsage: "<definition.json>",
		Action: func(_ context.Context, command *cli.Command) error {
			path := command.Args().First()
			if path == "" {
				return fmt.Errorf("usage: voxflow validate <definition.json>")
			}

			raw, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			graph, err := states.ParseDefinition(raw)
			if err != nil {
				return fmt.Errorf("%s is not a valid graph definition: %w", path, err)
			}

			fmt.Printf("%s: ok (graph %q, %d states, entry %q)\n",
				path, graph.Name, len(graph.States), graph.StartAt)

			return nil
		},
	}
}
