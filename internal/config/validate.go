package config

import (
	"net/url"
	"path/filepath"

	"git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/retry"
)

// Validate normalizes enumerations and checks the configuration. It returns
// the first problem as a classified config error.
func (c *Config) Validate() error {
	level, err := ParseLogLevel(string(c.Build.LogLevel))
	if err != nil {
		return invalid("build.log_level", err)
	}
	c.Build.LogLevel = level

	format, err := ParseLogFormat(string(c.Build.LogFormat))
	if err != nil {
		return invalid("build.log_format", err)
	}
	c.Build.LogFormat = format

	if c.Site.BaseURL != "" {
		if _, err := url.Parse(c.Site.BaseURL); err != nil {
			return invalid("site.base_url", err)
		}
	}
	if len(c.Source.PageViews) == 0 {
		return errors.ConfigError("at least one page view directory is required").
			WithContext("field", "source.pageviews").
			Build()
	}
	for name, dir := range c.Source.Collections {
		if name == "" || dir == "" {
			return errors.ConfigError("collections need a name and a directory").
				WithContext("field", "source.collections").
				WithContext("collection", name).
				Build()
		}
	}
	if c.Output.Directory == "" {
		return errors.ConfigError("output directory is required").
			WithContext("field", "output.directory").
			Build()
	}
	if filepath.Clean(c.Output.Directory) == "." {
		return errors.ConfigError("output directory must not be the site root").
			WithContext("field", "output.directory").
			Build()
	}
	if c.Build.Concurrency < 1 {
		c.Build.Concurrency = 1
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.ConfigError("server port out of range").
			WithContext("field", "server.port").
			WithContext("port", c.Server.Port).
			Build()
	}
	if c.Server.RescanInterval < 0 {
		return errors.ConfigError("rescan interval must not be negative").
			WithContext("field", "server.rescan_interval").
			Build()
	}
	if _, err := retry.ParseBackoff(c.Notify.RetryBackoff); err != nil {
		return invalid("notify.retry_backoff", err)
	}
	if c.Notify.MaxRetries < 0 {
		return errors.ConfigError("notify retries must not be negative").
			WithContext("field", "notify.max_retries").
			Build()
	}
	if c.Notify.NATSURL != "" && c.Notify.Subject == "" {
		return errors.ConfigError("notify subject is required when nats_url is set").
			WithContext("field", "notify.subject").
			Build()
	}
	return nil
}

func invalid(field string, err error) error {
	return errors.WrapError(err, errors.CategoryConfig, "invalid configuration value").
		WithContext("field", field).
		UserAction().
		Build()
}
