package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"fluently/internal/client"
	"fluently/internal/config"
)

type commandContext struct {
	addrFlag   *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(addrFlag, configFlag *string) *commandContext {
	return &commandContext{
		addrFlag:   addrFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// daemonAddr resolves the daemon API address from the flag or config.
func (c *commandContext) daemonAddr() string {
	if c.addrFlag != nil && strings.TrimSpace(*c.addrFlag) != "" {
		return strings.TrimSpace(*c.addrFlag)
	}
	if cfg := c.configValue(); cfg != nil && strings.TrimSpace(cfg.Paths.APIBind) != "" {
		return cfg.Paths.APIBind
	}
	return "127.0.0.1:8460"
}

func (c *commandContext) withClient(fn func(*client.Client) error) error {
	cl, err := client.New(c.daemonAddr())
	if err != nil {
		return err
	}
	return fn(cl)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
