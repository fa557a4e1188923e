// Package main resolves a timestamped tweet's metadata document back out of
// the ledger by token id.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"tweetstamp/internal/domain"
	"tweetstamp/internal/ledger"
	"tweetstamp/internal/resolve"
)

func main() {
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("LEDGER_RPC_ENDPOINT"), "Ledger JSON-RPC HTTP endpoint")
	contract := flag.String("contract", "registry", "Registry contract address")
	id := flag.Uint64("id", 0, "Tweet status id")
	timeout := flag.Duration("timeout", 30*time.Second, "Resolution deadline")

	flag.Parse()

	logger := log.New(os.Stderr, "[resolve] ", log.LstdFlags)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *id == 0 {
		logger.Fatal("--id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := ledger.NewHTTPClient(*rpcEndpoint)
	doc, err := resolve.NewResolver(client, domain.Address(*contract)).Resolve(ctx, domain.TokenID(*id))
	if err != nil {
		logger.Fatalf("resolve failed: %v", err)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		logger.Fatalf("encode document: %v", err)
	}
	fmt.Println(string(out))
}
