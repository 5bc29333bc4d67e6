package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/pseudocpp/internal/translate"
)

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Load both models and report which directions are available",
		Flags: commonModelFlags(&modelOpts),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applyModelConfig(cmd, fileConfig, &modelOpts)
			configs := directionConfigs(fileConfig, modelOpts)
			service := translate.NewService(configs...)
			service.Warm(ctx)
			writeStatus(os.Stdout, configs, service.Status())
			return nil
		},
	}
}

func writeStatus(w io.Writer, configs []translate.DirectionConfig, statuses []translate.Status) {
	weights := make(map[translate.Direction]string, len(configs))
	for _, dc := range configs {
		weights[dc.Direction] = dc.Weights
		if dc.Backend == translate.BackendRemote {
			weights[dc.Direction] = dc.RemoteURL
		}
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "DIRECTION\tSTATUS\tSOURCE")
	for _, st := range statuses {
		state := "ready"
		if !st.Available {
			state = "unavailable"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Direction, state, weights[st.Direction])
	}
	_ = tw.Flush()
	for _, st := range statuses {
		if st.Error != "" {
			_, _ = fmt.Fprintf(w, "%s: %s\n", st.Direction, st.Error)
		}
	}
}
