package main

import (
	"context"
	"flag"
	"log"
	"os"

	taskdeskcmd "github.com/louisbranch/taskdesk/internal/cmd/taskdesk"
	entrypoint "github.com/louisbranch/taskdesk/internal/platform/cmd"
)

func main() {
	cfg, err := taskdeskcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[TASKDESK] ")
	ctx, stop := entrypoint.SignalContext(context.Background())
	defer stop()

	if err := taskdeskcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
