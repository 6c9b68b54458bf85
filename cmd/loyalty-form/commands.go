// ABOUTME: serve, token, hash-password and health subcommands

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/loyalty-form/internal/auth"
	"github.com/2389/loyalty-form/internal/gateway"
)

func newServeCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the form server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			cyan := color.New(color.FgCyan)
			gray := color.New(color.FgHiBlack)
			cyan.Fprint(out, banner)
			gray.Fprintf(out, "    version: %s\n\n", version)

			cfg, configPath, err := load()
			if err != nil {
				return err
			}

			logger := setupLogger(cfg.Logging, out)

			green := color.New(color.FgGreen)
			yellow := color.New(color.FgYellow)

			green.Fprint(out, "    ▶ ")
			fmt.Fprintf(out, "Config:      %s\n", configPath)
			green.Fprint(out, "    ▶ ")
			fmt.Fprintf(out, "Environment: %s\n", cfg.Environment)
			if cfg.Tailscale.Enabled {
				green.Fprint(out, "    ▶ ")
				fmt.Fprint(out, "Tailscale:   ")
				cyan.Fprint(out, cfg.Tailscale.Hostname)
				if cfg.Tailscale.Funnel {
					yellow.Fprint(out, " [funnel]")
				}
				if cfg.Tailscale.Ephemeral {
					gray.Fprint(out, " (ephemeral)")
				}
				fmt.Fprintln(out)
			} else {
				green.Fprint(out, "    ▶ ")
				fmt.Fprintf(out, "HTTP:        %s\n", cfg.Server.HTTPAddr)
			}
			if cfg.Upstream.BaseURL == "" {
				yellow.Fprintln(out, "    ! upstream.base_url not set, submissions will fail")
			}
			fmt.Fprintln(out)

			logger.Info("starting loyalty-form",
				"config", configPath,
				"environment", cfg.Environment,
				"http_addr", cfg.Server.HTTPAddr,
			)

			gw, err := gateway.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("creating gateway: %w", err)
			}

			return gw.Run(cmd.Context())
		},
	}
}

func newTokenCmd(load configLoader) *cobra.Command {
	var (
		sc      auth.SessionContext
		nested  bool
		ttl     time.Duration
		baseURL string
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed test token and print a form URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}

			signer := auth.NewSigner(auth.SigningKey(cfg.Auth.JWTSecret))
			var token string
			if nested {
				token, err = signer.SignNested(sc, "loyalty", ttl)
			} else {
				token, err = signer.SignFlat(sc, ttl)
			}
			if err != nil {
				return fmt.Errorf("signing token: %w", err)
			}

			if baseURL == "" {
				baseURL = cfg.Branding.PublicURL
			}
			if baseURL == "" {
				baseURL = "http://" + cfg.Server.HTTPAddr
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s/?payload=%s\n", strings.TrimSuffix(baseURL, "/"), token)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&nested, "nested", false, "use the {payload: {type, parameters}} shape")
	flags.StringVar(&sc.UserID, "user-id", "", "loyalty platform user id")
	flags.StringVar(&sc.EVSEID, "evse-id", "", "charging station id")
	flags.StringVar(&sc.FirstName, "first-name", "", "user first name")
	flags.StringVar(&sc.LastName, "last-name", "", "user last name")
	flags.StringVar(&sc.EVSEReference, "evse-reference", "", "charging station physical reference")
	flags.DurationVar(&ttl, "ttl", time.Hour, "token lifetime (0 for no expiry)")
	flags.StringVar(&baseURL, "base-url", "", "form URL (default branding.public_url or http://server.http_addr)")
	return cmd
}

// newHashPasswordCmd reads a password from stdin so it never lands in shell history.
func newHashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a logo admin password read from stdin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("reading password: %w", err)
			}
			password = strings.TrimRight(password, "\r\n")
			if password == "" {
				return errors.New("password cannot be empty")
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
			if err != nil {
				return fmt.Errorf("hashing password: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(hash))
			return nil
		},
	}

	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

func newHealthCmd(load configLoader) *cobra.Command {
	var ready bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}

			path := "/health"
			if ready {
				path = "/health/ready"
			}
			url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, url, nil)
			if err != nil {
				return fmt.Errorf("creating request: %w", err)
			}

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
			}

			fmt.Fprintln(cmd.OutOrStdout(), "healthy")
			return nil
		},
	}

	cmd.Flags().BoolVar(&ready, "ready", false, "also check the logo store")
	return cmd
}
