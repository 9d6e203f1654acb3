// Command issue-credential prints the signed credential for an identity. Clients
// send it as the X-Novel-Credential header or exchange it for a session cookie.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/pscheid92/worldnovel/internal/platform/credential"
)

func main() {
	var (
		identity = flag.String("identity", "", "Identity the credential is issued for")
		maxAge   = flag.Duration("max-age", 720*time.Hour, "Credential lifetime; keep in line with the server's SESSION_MAX_AGE")
	)
	flag.Parse()

	if err := run(os.Stdout, os.Getenv("SESSION_SECRET"), *identity, *maxAge); err != nil {
		log.Fatal(err)
	}
}

func run(w io.Writer, secret, identity string, maxAge time.Duration) error {
	if secret == "" {
		return errors.New("SESSION_SECRET is required")
	}
	if identity == "" {
		return errors.New("-identity is required")
	}

	token, err := credential.NewIssuer([]byte(secret), maxAge).Issue(identity)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, token); err != nil {
		return fmt.Errorf("failed to write credential: %w", err)
	}
	return nil
}
