package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/pseudocpp/internal/translate"
)

func initWeightsCmd() *cli.Command {
	var (
		direction string
		seed      int64
		force     bool
	)

	return &cli.Command{
		Name:  "init-weights",
		Usage: "Write randomly initialised weights sized to the installed vocabularies",
		Flags: append(commonModelFlags(&modelOpts),
			&cli.StringFlag{
				Name:        "direction",
				Aliases:     []string{"d"},
				Usage:       "only initialise this direction (code, pseudo)",
				Destination: &direction,
			},
			&cli.Int64Flag{
				Name:        "seed",
				Usage:       "random seed",
				Value:       1,
				Destination: &seed,
			},
			&cli.BoolFlag{
				Name:        "force",
				Usage:       "overwrite existing weights",
				Destination: &force,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyModelConfig(cmd, fileConfig, &modelOpts)
			return initWeights(ctx, os.Stdout, directionConfigs(fileConfig, modelOpts), direction, seed, force)
		},
	}
}

// initWeights writes weights for every config, or only for the one matching
// direction when it is set.
func initWeights(ctx context.Context, w io.Writer, configs []translate.DirectionConfig, direction string, seed int64, force bool) error {
	var only translate.Direction
	if direction != "" {
		d, err := translate.ParseDirection(direction)
		if err != nil {
			return err
		}
		only = d
	}
	for _, dc := range configs {
		if only != "" && dc.Direction != only {
			continue
		}
		if err := translate.InitWeights(ctx, dc, seed, force); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s: %s\n", dc.Direction, dc.Weights)
	}
	return nil
}
