// Package main runs a one-shot leaderboard import.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	syncjobcmd "github.com/chatrhq/chatr/internal/cmd/syncjob"
)

func main() {
	cfg, err := syncjobcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[SYNCJOB] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := syncjobcmd.Run(ctx, cfg); err != nil {
		log.Fatalf("sync failed: %v", err)
	}
}
