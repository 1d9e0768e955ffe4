// Command admin-token mints a bearer token for the duewatch control API
// using the configured auth.jwt_secret.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/phrazzld/duewatch/internal/config"
	"github.com/phrazzld/duewatch/internal/service/auth"
)

func main() {
	subject := flag.String("subject", "operator", "token subject recorded in the sub claim")
	role := flag.String("role", auth.RoleAdmin, "role claim")
	lifetime := flag.Duration("lifetime", 0, "token lifetime (defaults to auth.token_lifetime)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "admin-token: failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := mint(os.Stdout, cfg.Auth, *subject, *role, *lifetime); err != nil {
		fmt.Fprintf(os.Stderr, "admin-token: %v\n", err)
		os.Exit(1)
	}
}

// mint writes a signed token followed by a newline to w. A positive
// lifetime overrides the configured one.
func mint(w io.Writer, cfg config.AuthConfig, subject, role string, lifetime time.Duration) error {
	if cfg.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not set")
	}
	if subject == "" {
		return errors.New("subject must not be empty")
	}
	if lifetime > 0 {
		cfg.TokenLifetime = lifetime
	}

	svc, err := auth.NewJWTService(cfg)
	if err != nil {
		return err
	}
	token, err := svc.GenerateToken(context.Background(), subject, role)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, token)
	return err
}
