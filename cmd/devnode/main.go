// Package main runs the development ledger node: one in-process registry
// contract behind a JSON-RPC endpoint, a websocket event feed and
// Prometheus metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/node"
	"tweetstamp/internal/observability"
	"tweetstamp/internal/storage"
	chstore "tweetstamp/internal/storage/clickhouse"
	"tweetstamp/internal/storage/memory"
	"tweetstamp/internal/storage/migrations"
)

func main() {
	loadEnvFile()

	listenAddr := flag.String("listen-addr", ":8545", "JSON-RPC listen address")
	contract := flag.String("contract", "registry", "Registry contract address")
	minter := flag.String("minter", os.Getenv("MINTER_ADDRESS"), "Address allowed to mint and burn")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse DSN for the event log (empty for in-memory)")
	queueSize := flag.Int("queue-size", 256, "Apply queue depth")
	verbose := flag.Bool("verbose", false, "Log every applied transaction")

	flag.Parse()

	logger := log.New(os.Stdout, "[devnode] ", log.LstdFlags)

	if *minter == "" {
		logger.Fatal("--minter is required")
	}

	var eventStore storage.EventStore
	var chConn *chstore.Conn
	if *clickhouseDSN != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		conn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		cancel()
		if err != nil {
			logger.Fatalf("clickhouse setup failed: %v", err)
		}
		chConn = conn
		eventStore = chstore.NewEventStore(conn)
		logger.Println("event log: clickhouse")
	} else {
		eventStore = memory.NewEventStore()
		logger.Println("event log: in-memory")
	}

	n := node.New(node.Config{
		Contract:   domain.Address(*contract),
		Minter:     domain.Address(*minter),
		EventStore: eventStore,
		Metrics:    observability.NewMetrics(""),
		QueueSize:  *queueSize,
		Verbose:    *verbose,
	})
	n.Start()

	server := &http.Server{
		Addr:    *listenAddr,
		Handler: n.Handler(),
	}

	go func() {
		logger.Printf("listening on %s (contract %s, minter %s)", *listenAddr, *contract, *minter)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("serve: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Println("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("shutdown: %v", err)
	}
	n.Stop()
	if chConn != nil {
		chConn.Close()
	}
}

// loadEnvFile loads .env into the environment without overriding existing
// variables.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
