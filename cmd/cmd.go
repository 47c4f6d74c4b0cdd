// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand creates the config file and the local database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and initialize the database",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config file from the built-in template",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand manages the session held in the cookie store
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Log in, register and manage the stored session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with a username or email",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "user",
						Aliases:  []string{"u"},
						Usage:    "Username or email address",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "Account password",
						Sources:  cli.EnvVars("VIDSTREAM_PASSWORD"),
						Required: true,
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "full-name", Usage: "Full name", Required: true},
					&cli.StringFlag{Name: "username", Usage: "Username", Required: true},
					&cli.StringFlag{Name: "email", Usage: "Email address", Required: true},
					&cli.StringFlag{
						Name:     "password",
						Usage:    "Password (at least 6 characters)",
						Sources:  cli.EnvVars("VIDSTREAM_PASSWORD"),
						Required: true,
					},
					&cli.StringFlag{Name: "avatar", Usage: "Path to the avatar image", Required: true},
					&cli.StringFlag{Name: "cover", Usage: "Path to an optional cover image"},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "End the current session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:  "import",
				Usage: "Import session cookies from a browser cURL command",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command copied from the browser's network tab",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "File containing the cURL command",
					},
				},
				Action: r.AuthImport,
			},
			{
				Name:   "forget",
				Usage:  "Delete stored cookies for the API host",
				Action: r.AuthForget,
			},
		},
	}
}

// videosCommand handles catalog operations
func videosCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "videos",
		Aliases: []string{"v"},
		Usage:   "List, inspect and upload videos",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List one page of the catalog",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "page",
						Usage: "Page number, starting at 1",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Videos per page",
						Value: 10,
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Search text",
					},
					&cli.StringFlag{
						Name:  "sort-by",
						Usage: "Field to sort by, e.g. createdAt or views",
					},
					&cli.StringFlag{
						Name:  "sort-type",
						Usage: "asc or desc",
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "Only videos owned by this user ID",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: plain, csv, md or json",
						Value:   "plain",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the page to a file instead of stdout",
					},
				},
				Action: r.VideosList,
			},
			{
				Name:  "export",
				Usage: "Export every catalog page to a directory",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: plain, csv, md or json",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: videos_export_{timestamp})",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Videos per page",
						Value: 50,
					},
					&cli.StringFlag{
						Name:    "query",
						Aliases: []string{"q"},
						Usage:   "Search text",
					},
					&cli.StringFlag{
						Name:  "sort-by",
						Usage: "Field to sort by",
					},
					&cli.StringFlag{
						Name:  "sort-type",
						Usage: "asc or desc",
					},
					&cli.StringFlag{
						Name:  "user",
						Usage: "Only videos owned by this user ID",
					},
					&cli.IntFlag{
						Name:  "max-pages",
						Usage: "Stop after this many pages (0 for all)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent page fetches (max 10)",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate-limit",
						Usage: "Page requests per second",
						Value: 5,
					},
				},
				Action: r.VideosExport,
			},
			{
				Name:      "get",
				Usage:     "Show one video",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.VideosGet,
			},
			{
				Name:      "open",
				Usage:     "Open a video in the browser",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "thumbnail",
						Usage: "Open the thumbnail instead of the video file",
					},
				},
				Action: r.VideosOpen,
			},
			{
				Name:      "thumbnail",
				Usage:     "Download a video's thumbnail",
				ArgsUsage: "<id>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (defaults to <id> plus the image extension)",
					},
				},
				Action: r.VideosThumbnail,
			},
			{
				Name:  "upload",
				Usage: "Upload a video (requires login)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Video title", Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Video description", Required: true},
					&cli.StringFlag{Name: "video", Usage: "Path to the video file", Required: true},
					&cli.StringFlag{Name: "thumbnail", Usage: "Path to the thumbnail image", Required: true},
				},
				Action: r.VideosUpload,
			},
		},
	}
}

// apiCommand makes raw requests against the API
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct API access",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "GET a path relative to the API base URL",
				ArgsUsage: "<path>",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// tuiCommand launches the interactive terminal UI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Browse videos in an interactive terminal UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "start",
				Usage: "Route to open first, e.g. / or /upload",
				Value: "/",
			},
			&cli.IntFlag{
				Name:  "page-size",
				Usage: "Videos per catalog page",
				Value: 10,
			},
		},
		Action: r.TUI,
	}
}
