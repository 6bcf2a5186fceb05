package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/youruser/distintivos/internal/config"
	"github.com/youruser/distintivos/internal/logging"
)

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
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
		c.config = cfg
	})
	return c.config, c.configErr
}

// logger builds the process logger, writing to the command's stderr. Flag
// values win over the [logging] section.
func (c *commandContext) logger(cmd *cobra.Command) (*slog.Logger, error) {
	opts := logging.Options{Output: cmd.ErrOrStderr()}
	if c.config != nil {
		opts.Level = c.config.Logging.Level
		opts.Format = c.config.Logging.Format
	}
	if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
		opts.Level = *c.logLevelFlag
	}
	if c.logFormatFlag != nil && strings.TrimSpace(*c.logFormatFlag) != "" {
		opts.Format = *c.logFormatFlag
	}
	return logging.New(opts)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
