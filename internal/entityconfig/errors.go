package entityconfig

import (
	"errors"
	"strings"
)

// ErrConfig is matched by every *ConfigError.
var ErrConfig = errors.New("invalid entity configuration")

// ConfigError reports an unreadable or malformed configuration fragment. Only the
// entity (or group, for defaults) it belongs to is skipped.
type ConfigError struct {
	Group  string
	Entity string
	Path   string
	Err    error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("entity config")
	if e.Group != "" {
		b.WriteString(" group ")
		b.WriteString(e.Group)
	}
	if e.Entity != "" {
		b.WriteString(" entity ")
		b.WriteString(e.Entity)
	}
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrConfig) match.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }
