// Command semaforoctl is the operator CLI for the semaforo engine. It talks to
// the same Postgres/Redis/Kafka backends as the server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"

	"semaforo/internal/app"
	"semaforo/internal/platform/config"
	"semaforo/internal/platform/logger"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, log, prometheus.NewRegistry())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}

	cmds := &commands{
		semaforo:  a.Semaforo,
		documents: a.DocumentsSvc,
		orgs:      a.Organizations,
		out:       os.Stdout,
	}
	err = cmds.dispatch(ctx, os.Args[1:])
	_ = a.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "semaforoctl: %v\n", err)
		os.Exit(1)
	}
}
