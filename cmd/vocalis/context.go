package main

import (
	"fmt"
	"strings"
	"sync"

	"vocalis/internal/config"
)

// commandContext lazily loads configuration shared by the subcommands.
type commandContext struct {
	configPath string
	apiAddr    string

	once sync.Once
	cfg  *config.Config
	err  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.once.Do(func() {
		c.cfg, _, c.err = config.Load(c.configPath)
	})
	if c.err != nil {
		return nil, fmt.Errorf("load config: %w", c.err)
	}
	return c.cfg, nil
}

// apiBase resolves the daemon API base URL from the --api flag or the
// configured bind address.
func (c *commandContext) apiBase() (string, error) {
	addr := strings.TrimSpace(c.apiAddr)
	if addr == "" {
		cfg, err := c.ensureConfig()
		if err != nil {
			return "", err
		}
		addr = strings.TrimSpace(cfg.APIBind)
	}
	if addr == "" {
		return "", fmt.Errorf("no daemon API address configured; set [paths].api_bind or pass --api")
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return strings.TrimRight(addr, "/"), nil
}

func (c *commandContext) apiToken() string {
	cfg, err := c.ensureConfig()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cfg.APIToken)
}
