package main

import "github.com/urfave/cli/v3"

// modelOptions holds the flags shared by every command that loads models.
type modelOptions struct {
	ModelsDir string
	MaxLength int64
	Backend   string
	RemoteURL string
	Fetch     bool
}

var (
	configFile string
	modelOpts  modelOptions
	logLevel   string
	logFormat  string
	debug      bool
)

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default $XDG_CONFIG_HOME/pseudocpp/config.yaml)",
			Destination: &configFile,
		},
	}
}

func commonModelFlags(o *modelOptions) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "models-dir",
			Aliases:     []string{"models", "path"},
			Usage:       "directory holding pseudoToCode/ and codeToPseudo/ artifacts (env PSEUDOCPP_MODELS_DIR)",
			Destination: &o.ModelsDir,
		},
		&cli.Int64Flag{
			Name:        "max-length",
			Aliases:     []string{"n"},
			Usage:       "maximum number of generated tokens",
			Value:       64,
			Destination: &o.MaxLength,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "model backend (native, remote)",
			Value:       "native",
			Destination: &o.Backend,
		},
		&cli.StringFlag{
			Name:        "remote-url",
			Usage:       "inference endpoint for the remote backend",
			Destination: &o.RemoteURL,
		},
		&cli.BoolFlag{
			Name:        "fetch",
			Usage:       "run the fetch command (default: git lfs pull) when weights are missing",
			Destination: &o.Fetch,
		},
	}
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (pretty, json, text)",
			Value:       "pretty",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}
