package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/noah-isme/resort-quote/internal/auth"
	"github.com/noah-isme/resort-quote/internal/config"
)

// agent_token issues a bearer token for a travel agent using the API's signing configuration.
func main() {
	id := flag.String("agent", "", "agent identifier (token subject)")
	agency := flag.String("agency", "", "agency name recorded on the token")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to AGENT_TOKEN_TTL")
	flag.Parse()

	if *id == "" {
		fmt.Fprintln(os.Stderr, "agent_token: -agent is required")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent_token: %v\n", err)
		os.Exit(2)
	}
	lifetime := cfg.AgentTokenTTL
	if *ttl > 0 {
		lifetime = *ttl
	}

	verifier, err := auth.NewVerifier(auth.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TokenTTL: lifetime,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent_token: %v\n", err)
		os.Exit(2)
	}
	token, expiresAt, err := verifier.Issue(auth.Agent{ID: *id, Agency: *agency})
	if err != nil {
		fmt.Fprintf(os.Stderr, "agent_token: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
	fmt.Println(token)
}
