package main

import (
	"context"

	"obswatch/cmd/obswatch/commands"
	"obswatch/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "obswatch")
	commands.ExecuteContext(context.Background())
}
