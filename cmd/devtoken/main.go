// Command devtoken prints a bearer token for a principal, signed with the
// configured secret. It refuses to run with a production configuration.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/scaregistry/backend/internal/infrastructure/auth"
	"github.com/scaregistry/backend/internal/infrastructure/config"
)

func main() {
	principal := flag.String("principal", "", "principal id to place in the sub claim (required)")
	ttl := flag.Duration("ttl", 0, "token lifetime, defaults to SCA_JWT_ACCESS_TOKEN_EXPIRATION")
	flag.Parse()

	if *principal == "" {
		fmt.Fprintln(os.Stderr, "Usage: devtoken -principal <id> [-ttl 8h]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.App.IsProduction() {
		fmt.Fprintln(os.Stderr, "devtoken is disabled in production")
		os.Exit(1)
	}
	if *ttl > 0 {
		cfg.JWT.AccessTokenExpiration = *ttl
	}

	token, expires, err := auth.NewJWTService(cfg.JWT).IssueToken(*principal)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", expires.Format(time.RFC3339))
	fmt.Println(token)
}
