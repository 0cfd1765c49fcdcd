package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/retrievex/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "retrievexctl",
		Usage:   "Operate a retrievex index directly against its document store",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Configuration environment (config/<env>.yaml)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "index",
				Usage: "Manage the search index",
				Subcommands: []*cli.Command{
					{Name: "ensure", Usage: "Create the index if it is missing", Action: indexEnsureCommand},
					{Name: "info", Usage: "Show index name, dimension and document count", Action: indexInfoCommand},
					{
						Name:   "drop",
						Usage:  "Drop the index (documents stay in the keyspace)",
						Action: indexDropCommand,
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "yes", Usage: "Confirm the drop"},
						},
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest texts atomically; reads one text per line from --file or takes arguments",
				ArgsUsage: "[text...]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "File with one text per line (- for stdin)"},
					&cli.StringSliceFlag{Name: "meta", Aliases: []string{"m"}, Usage: "Shared metadata as key=value (repeatable)"},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a lexical, semantic or hybrid search",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mode", Usage: "lexical, semantic or hybrid", Value: "hybrid"},
					&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Number of results", Value: 5},
				},
			},
			{
				Name:      "get",
				Usage:     "Print a document",
				ArgsUsage: "<id>",
				Action:    getCommand,
			},
			{
				Name:      "delete",
				Usage:     "Delete a document",
				ArgsUsage: "<id>",
				Action:    deleteCommand,
			},
			{
				Name:   "health",
				Usage:  "Ping the store and the embedding provider",
				Action: healthCommand,
			},
		},
	}
}
