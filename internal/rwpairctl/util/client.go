package util

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/restwell/restwell-pairing/internal/rwpairctl/client"
	"github.com/restwell/restwell-pairing/internal/rwpairctl/config"
)

// GetClient creates an API client from the environment and config
func GetClient(cfg *config.Config) (*client.Client, error) {
	apiURL := os.Getenv("RWPAIR_API_URL")
	if apiURL == "" {
		apiURL = cfg.Server
	}
	if apiURL == "" {
		return nil, fmt.Errorf("no API server configured - set RWPAIR_API_URL or configure in rwpairctl config")
	}

	token := os.Getenv("RWPAIR_AUTH_TOKEN")
	if token == "" {
		token = cfg.Token
	}

	opts := []client.Option{}
	if token != "" {
		opts = append(opts, client.WithToken(token))
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, client.WithTLSConfig(&tls.Config{InsecureSkipVerify: true}))
	}

	c, err := client.NewClient(apiURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return c, nil
}
