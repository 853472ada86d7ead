package app

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/meneses-pt/goals.zone/internal/auth"
)

// runHashKey prints a bcrypt hash for ADMIN_API_KEY_HASH. With --generate a fresh key is
// created and printed alongside its hash; otherwise the key is read from stdin.
func runHashKey(args []string) int {
	fs := flag.NewFlagSet("hash-key", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	generate := fs.Bool("generate", false, "Generate a new random key")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	var key string
	if *generate {
		generated, err := auth.GenerateAPIKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
			return 1
		}
		key = generated
	} else {
		read, err := readKey(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to read key: %v\n", err)
			return 2
		}
		key = read
	}

	hash, err := auth.HashAPIKey(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash key: %v\n", err)
		return 2
	}
	if *generate {
		fmt.Printf("ADMIN_API_KEY=%s\n", key)
	}
	fmt.Printf("ADMIN_API_KEY_HASH=%s\n", hash)
	return 0
}

func readKey(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	key := strings.TrimSpace(line)
	if key == "" {
		return "", fmt.Errorf("no key on stdin")
	}
	return key, nil
}
