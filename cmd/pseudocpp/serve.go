package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/pseudocpp/internal/api"
	"github.com/samcharles93/pseudocpp/internal/logger"
	"github.com/samcharles93/pseudocpp/internal/translate"
)

func serveCmd() *cli.Command {
	var (
		addr              string
		readHeaderTimeout time.Duration
		storeSize         int64
		warm              bool
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the translation REST API",
		Flags: append(commonModelFlags(&modelOpts),
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-header-timeout",
				Usage:       "time allowed to read request headers",
				Value:       30 * time.Second,
				Destination: &readHeaderTimeout,
			},
			&cli.Int64Flag{
				Name:        "store-size",
				Usage:       "number of recent translations retrievable by id",
				Value:       api.DefaultStoreSize,
				Destination: &storeSize,
			},
			&cli.BoolFlag{
				Name:        "warm",
				Usage:       "load both models before accepting requests",
				Destination: &warm,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyModelConfig(cmd, fileConfig, &modelOpts)
			applyServeConfig(cmd, fileConfig, &addr)

			service := translate.NewService(directionConfigs(fileConfig, modelOpts)...)
			if warm {
				service.Warm(ctx)
				for _, st := range service.Status() {
					if !st.Available {
						log.Warn("direction unavailable", "direction", st.Direction.String(), "error", st.Error)
					}
				}
			}

			server := api.NewServer(api.NewTranslationStore(int(storeSize)), service)
			e := api.NewEcho(server)
			log.Info("starting server", "address", addr)
			return api.Serve(ctx, api.ServeConfig{Address: addr, ReadHeaderTimeout: readHeaderTimeout}, e)
		},
	}
}
