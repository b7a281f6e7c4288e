// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

// chatCommand starts the terminal conversation loop
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "chat",
		Usage:  "Chat with the curator agent in the terminal",
		Action: r.Chat,
	}
}

// tuiCommand launches the interactive chat UI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive chat UI with a cart panel",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File receiving logs while the UI is running",
				Value: "./tmp/ytcurator-tui.log",
			},
		},
		Action: r.TUI,
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the chat API over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (overrides config)",
			},
			&cli.DurationFlag{
				Name:  "idle",
				Usage: "Drop sessions idle for longer than this",
				Value: 30 * time.Minute,
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the health endpoint in a browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles first-run setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Configuration, credential and database setup",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:  "youtube",
				Usage: "Save YouTube Music credentials from a copied browser cURL command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from the browser",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "File containing the cURL command",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Credential bundle path (defaults to youtube.headers_path)",
					},
				},
				Action: r.SetupYouTube,
			},
			{
				Name:   "database",
				Usage:  "Initialize the history database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand inspects and refreshes catalog credentials
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "YouTube Music authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Save credentials from a file containing a browser cURL command",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "path",
						UsageText: "Path to the cURL file",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check the catalog proxy and the saved credentials",
				Action: r.AuthStatus,
			},
		},
	}
}

// searchCommand searches the song index
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search YouTube Music songs",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "query",
				UsageText: "Search query",
			},
		},
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of songs",
				Value: 10,
			},
		}, outputFlags()...),
		Action: r.Search,
	}
}

// artistCommand lists an artist's top songs
func artistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "artist",
		Usage: "List top songs for an artist",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "name",
				UsageText: "Artist name",
			},
		},
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of songs",
				Value: 5,
			},
		}, outputFlags()...),
		Action: r.Artist,
	}
}

// radioCommand lists recommendations seeded by a search
func radioCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "radio",
		Usage: "List recommendations seeded by the best match for a query",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:      "query",
				UsageText: "Seed song query",
			},
		},
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of songs",
				Value: 5,
			},
		}, outputFlags()...),
		Action: r.Radio,
	}
}

// historyCommand lists and exports checked-out playlists
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Playlists created through checkout",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "session",
				Usage: "Only playlists created by this session",
			},
		}, outputFlags()...),
		Action: r.HistoryList,
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Show or export one playlist",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "id",
						UsageText: "History record ID",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, md, txt, json or yaml",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Export file path (defaults to the playlist title)",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:  "delete",
				Usage: "Remove a playlist from local history",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name:      "id",
						UsageText: "History record ID",
					},
				},
				Action: r.HistoryDelete,
			},
		},
	}
}
