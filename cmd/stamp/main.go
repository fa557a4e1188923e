// Package main timestamps a single tweet: anchors its metadata document on
// the ledger and mints the token whose URI points at the anchor.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/ledger"
	"tweetstamp/internal/mint"
	"tweetstamp/internal/pipeline"
	"tweetstamp/internal/storage"
	"tweetstamp/internal/storage/memory"
	"tweetstamp/internal/storage/migrations"
	pgstore "tweetstamp/internal/storage/postgres"
	"tweetstamp/internal/wallet"
)

func main() {
	loadEnvFile()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("LEDGER_RPC_ENDPOINT"), "Ledger JSON-RPC HTTP endpoint")
	contract := flag.String("contract", "registry", "Registry contract address")
	seed := flag.String("seed", os.Getenv("WALLET_SEED"), "Hex-encoded ed25519 wallet seed")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL DSN for mint intents (empty for in-memory)")
	id := flag.Uint64("id", 0, "Tweet status id")
	username := flag.String("username", "", "Tweet author's handle, without @")
	bodyFile := flag.String("body-file", "", "File holding the tweet body JSON (- or empty for stdin)")
	image := flag.String("image", "", "Embeddable image reference for the metadata document")
	costMargin := flag.Uint64("cost-margin", pipeline.DefaultCostMargin, "Headroom added to the estimated execution cost")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall mint deadline")
	verbose := flag.Bool("verbose", false, "Log pipeline progress")

	flag.Parse()

	logger := log.New(os.Stderr, "[stamp] ", log.LstdFlags)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *seed == "" {
		logger.Fatal("--seed is required")
	}
	if *id == 0 {
		logger.Fatal("--id is required")
	}
	if *username == "" {
		logger.Fatal("--username is required")
	}

	body, err := readBody(*bodyFile)
	if err != nil {
		logger.Fatalf("read tweet body: %v", err)
	}

	w, err := wallet.FromSeedHex(*seed)
	if err != nil {
		logger.Fatalf("load wallet: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	intents, closeIntents, err := openIntentStore(ctx, *postgresDSN, logger)
	if err != nil {
		logger.Fatalf("open intent store: %v", err)
	}
	defer closeIntents()

	client := ledger.NewHTTPClient(*rpcEndpoint)
	submitter := pipeline.NewSubmitter(client, w,
		pipeline.WithCostMargin(*costMargin),
		pipeline.WithVerbose(*verbose))
	orch := mint.NewOrchestrator(client, submitter, intents,
		domain.Address(*contract), w.Address(),
		mint.WithVerbose(*verbose))

	receipt, err := orch.Mint(ctx, &domain.MintRequest{
		ID:       domain.TokenID(*id),
		Username: *username,
		Body:     body,
		Image:    *image,
	})
	if err != nil {
		logger.Fatalf("mint failed: %v", err)
	}

	out, err := json.MarshalIndent(receipt, "", "  ")
	if err != nil {
		logger.Fatalf("encode receipt: %v", err)
	}
	fmt.Println(string(out))
}

// openIntentStore returns the configured mint intent store and its cleanup.
func openIntentStore(ctx context.Context, dsn string, logger *log.Logger) (storage.MintIntentStore, func(), error) {
	if dsn == "" {
		logger.Println("mint intents: in-memory (no crash resume across runs)")
		return memory.NewMintIntentStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pgstore.NewMintIntentStore(pool), pool.Close, nil
}

// readBody reads the tweet body JSON from a file or stdin.
func readBody(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
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
