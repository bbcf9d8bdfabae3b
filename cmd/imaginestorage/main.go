package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/Jhaempyre/imaginestorage-sub000/internal/cmd"
)

var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.SetVersionInfo(version, commit, buildDate)
	cmd.Execute(ctx)
}
