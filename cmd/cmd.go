// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func listFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "all",
			Aliases: []string{"a"},
			Usage:   "Load every remaining page before printing",
		},
		&cli.BoolFlag{
			Name:  "refresh",
			Usage: "Discard the cached snapshot and start from the first page",
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format (text, csv, json, markdown)",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the list to a file instead of stdout",
		},
	}
}

func studentFlags(withID bool) []cli.Flag {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "Full name"},
		&cli.StringFlag{Name: "class", Usage: "Class or form"},
		&cli.StringFlag{Name: "uid", Usage: "School-assigned student number"},
		&cli.StringFlag{Name: "gender", Usage: "Male or Female"},
		&cli.StringFlag{Name: "email", Usage: "Email address"},
		&cli.StringFlag{Name: "phone", Usage: "Phone number"},
		&cli.StringSliceFlag{
			Name:  "guardian",
			Usage: "Guardian as name:phone:relationship (repeatable)",
		},
		&cli.StringFlag{
			Name:    "data",
			Aliases: []string{"d"},
			Usage:   "Student as a JSON object; flags override its fields",
		},
	}
	if withID {
		flags = append([]cli.Flag{&cli.StringFlag{Name: "id", Usage: "Student ID", Required: true}}, flags...)
	}
	return flags
}

func collectionFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "collection",
		Aliases: []string{"c"},
		Usage:   "Collection name (students, teachers, results, ...)",
		Value:   value,
	}
}

// studentsCommand handles student listing and writes
func studentsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "students",
		Aliases: []string{"st"},
		Usage:   "List and manage students",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Print cached students, fetching the first page when nothing is cached",
				Flags:  listFlags(),
				Action: r.StudentsList,
			},
			{
				Name:   "more",
				Usage:  "Fetch the next page of students",
				Flags:  listFlags()[2:],
				Action: r.StudentsMore,
			},
			{
				Name:   "add",
				Usage:  "Create a student",
				Flags:  studentFlags(false),
				Action: r.StudentsAdd,
			},
			{
				Name:   "update",
				Usage:  "Replace a student's details",
				Flags:  studentFlags(true),
				Action: r.StudentsUpdate,
			},
			{
				Name:  "delete",
				Usage: "Delete a student",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Student ID", Required: true},
				},
				Action: r.StudentsDelete,
			},
		},
	}
}

// resultsCommand handles exam results
func resultsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "results",
		Usage: "Exam results with computed grades",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Print results with percentage and grade columns",
				Flags:  listFlags(),
				Action: r.ResultsList,
			},
		},
	}
}

// snapshotCommand inspects and clears cached lists
func snapshotCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Inspect the cached lists of the current session",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show stored snapshots, or one collection's cached list",
				Flags:  []cli.Flag{collectionFlag("")},
				Action: r.SnapshotShow,
			},
			{
				Name:   "clear",
				Usage:  "Clear one collection's snapshot, or end the whole session",
				Flags:  []cli.Flag{collectionFlag("")},
				Action: r.SnapshotClear,
			},
			{
				Name:   "sessions",
				Usage:  "List sessions that own snapshots",
				Action: r.SnapshotSessions,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the school API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints the JSON response",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "raw",
						Usage: "Print non-JSON bodies instead of failing",
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// setupCommand handles setup operations for the database and config file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write the default configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
		},
	}
}

// exportCommand writes several collections to disk
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Load collections completely and write each to a file",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "collection",
				Aliases: []string{"c"},
				Usage:   "Collection to export (repeatable; default students, teachers, subjects, results)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, csv, json, markdown)",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:  "dir",
				Usage: "Output directory (default: roster_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Collections exported concurrently",
				Value: 3,
			},
			&cli.BoolFlag{
				Name:  "refresh",
				Usage: "Discard cached snapshots before loading",
			},
		},
		Action: r.Export,
	}
}

// tuiCommand returns the top-level TUI command for browsing a collection.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Browse a collection interactively, loading pages as you scroll",
		Flags:   []cli.Flag{collectionFlag("students")},
		Action:  r.TUI,
	}
}
