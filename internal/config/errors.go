package config

import (
	"fmt"

	"github.com/wraithcrawl/seoscan/pkg/failure"
)

type ConfigErrorCause string

const (
	ErrCauseInvalidOption    ConfigErrorCause = "invalid option"
	ErrCauseFileDoesNotExist ConfigErrorCause = "config file does not exist"
	ErrCauseReadFailure      ConfigErrorCause = "failed to read config file"
	ErrCauseParseFailure     ConfigErrorCause = "failed to parse config file"
)

// ConfigError reports a problem building or loading a Config. It is always
// fatal: a crawl never starts against a config that failed validation.
type ConfigError struct {
	Message string
	Cause   ConfigErrorCause
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: %s: %s", e.Cause, e.Message)
}

func (e *ConfigError) Severity() failure.Severity {
	return failure.SeverityFatal
}

var _ failure.ClassifiedError = (*ConfigError)(nil)
