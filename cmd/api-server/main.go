package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	sarit "github.com/xenking/sarit-store/internal/app"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := sarit.LoadConfig()
		if err != nil {
			return err
		}
		return sarit.Run(ctx, lg, m, cfg)
	})
}
