// cmd/objzip/main.go
package main

import (
	"errors"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/objzip/internal/config"
	"github.com/andresuchdata/objzip/pkg/logger"
)

// configureLogging keeps logs off stdout, which carries the command's JSON result.
func configureLogging(w io.Writer, jsonLogs bool, level string) {
	if w == nil {
		w = os.Stderr
	}
	if jsonLogs {
		logger.SetJSON(w)
	} else {
		logger.SetConsole(w)
	}
	logger.SetLevel(level)
}

func main() {
	logger.SetConsole(os.Stderr)

	app := &cli.App{
		Name:  "objzip",
		Usage: "Pack objects from a bucket into a zip archive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "info",
			},
			&cli.BoolFlag{
				Name:  "json-logs",
				Usage: "Write logs as JSON to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			configureLogging(c.App.ErrWriter, c.Bool("json-logs"), c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "compress",
				Usage:     "Archive objects to a bucket key, or to a local file when --target is omitted",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "target",
						Usage: "Bucket key of the archive to upload",
					},
					&cli.StringSliceFlag{
						Name:     "object",
						Aliases:  []string{"o"},
						Usage:    "Object to archive as key or key=name (repeatable; the last '=' separates the name)",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "output",
						Usage:   "Local archive path used without --target",
						EnvVars: []string{"ARCHIVE_LOCAL_PATH"},
					},
					&cli.StringFlag{
						Name:    "framing",
						Usage:   "Part framing: fragment or stream",
						EnvVars: []string{"ARCHIVE_FRAMING"},
					},
				},
				Action: runCompress,
			},
			{
				Name:  "sweep",
				Usage: "Abort multipart uploads left open by runs that never finished",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Only abort sessions started before this long ago (default SESSION_STALE_AFTER_MINUTES)",
					},
				},
				Action: runSweep,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			logger.Log.Error().Strs("missing", cfgErr.Missing).Strs("invalid", cfgErr.Invalid).Msg("invalid configuration")
		}
		logger.Log.Fatal().Err(err).Msg("objzip failed")
	}
}
