package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"govdata-etl/cmd/govdata/commands"
	"govdata-etl/lib/serviceutil"
	"govdata-etl/lib/telemetry"
)

func main() {
	telemetry.InitSlog(false)
	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "govdata")
	if err == nil {
		telemetry.InstrumentPerfStats(ctx, time.Second*15)
	} else if !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to setup telemetry", "err", err)
	}

	code := commands.ExecuteContext(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	err = tel.Shutdown(shutdownCtx)
	cancel()
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
	os.Exit(code)
}
