// Package main is the entrypoint for a distributed worker process: a
// gRPC server exposing internal/distworker.Server over the network so a
// `runner = distributed` engine can dispatch fused instruction chains to
// it instead of running them in-process.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/canonica-labs/distframe/internal/distworker"
	"github.com/canonica-labs/distframe/internal/storagefs"
	"github.com/canonica-labs/distframe/internal/workerexec"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "workerd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr   = flag.String("addr", ":7070", "gRPC listen address")
		dbPath = flag.String("db", "", "DuckDB database file (empty for in-memory)")
	)
	flag.Parse()

	exec, err := workerexec.NewExecutor(*dbPath)
	if err != nil {
		return fmt.Errorf("opening duckdb executor: %w", err)
	}
	defer exec.Close()

	storage := storagefs.NewRegistry().WithFallback(storagefs.NewLocal())
	storage.Register("file", storagefs.NewLocal())
	exec.WithStorage(storage)

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", *addr, err)
	}

	grpcServer := grpc.NewServer()
	distworker.RegisterWorkerServiceServer(grpcServer, distworker.NewServer(exec))

	errCh := make(chan error, 1)
	go func() {
		log.Printf("workerd: listening on %s", *addr)
		errCh <- grpcServer.Serve(lis)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("workerd: received %s, shutting down", sig)
		grpcServer.GracefulStop()
		return nil
	}
}
