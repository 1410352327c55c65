package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"upload-relay/config"
	"upload-relay/internal/services"
)

const usage = `
Upload Relay - API key tool

Usage:
  apikey [command] [flags]

Commands:
  hash     Print the bcrypt hash of a key for UPLOAD_API_KEY_HASH
  verify   Check a key against the configured UPLOAD_API_KEY / UPLOAD_API_KEY_HASH

Flags:
  -key string   Key to hash or verify (read from stdin when empty)

Examples:
  go run ./cmd/apikey hash -key s3cret
  echo s3cret | go run ./cmd/apikey verify
`

func main() {
	flag.Usage = func() {
		fmt.Print(usage)
	}
	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	command := os.Args[1]
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	key := fs.String("key", "", "Key to hash or verify")
	fs.Usage = flag.Usage
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}

	secret := *key
	if secret == "" {
		secret = readKey()
	}
	if secret == "" {
		log.Fatalf("No key given")
	}

	switch command {
	case "hash":
		runHash(secret)
	case "verify":
		runVerify(secret)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}

func readKey() string {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

func runHash(secret string) {
	hash, err := services.HashAPIKey(secret)
	if err != nil {
		log.Fatalf("Hashing failed: %v", err)
	}
	fmt.Println(hash)
}

func runVerify(secret string) {
	cfg := config.LoadConfig()
	apiKey := services.NewAPIKey(cfg.UploadAPIKey, cfg.UploadAPIKeyHash)

	if !apiKey.Configured() {
		log.Fatalf("Neither UPLOAD_API_KEY nor UPLOAD_API_KEY_HASH is set")
	}
	if !apiKey.Matches(secret) {
		log.Fatalf("Key does not match")
	}
	log.Println("Key matches")
}
