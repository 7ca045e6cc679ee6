// Package config binds the engine- and table-level knobs that don't
// belong to any one storage package (page size, sync rate limiting,
// schema directory layout) into a single Options struct, loadable from
// a file, environment variables, or flags via github.com/spf13/viper.
package config

import (
	"strings"

	"github.com/prinbee/prinbee-core/errtype"
	"github.com/prinbee/prinbee-core/page"
	"github.com/prinbee/prinbee-core/schema"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix viper looks for when binding environment
// variables, e.g. PRINBEE_PAGE_SIZE overrides PageSize.
const EnvPrefix = "PRINBEE"

// Options mirrors page.Options' defaulting pattern, extended with the
// engine-wide settings that sit above a single page file.
type Options struct {
	// PageSize is forwarded to page.Open for every table opened under
	// this configuration. Defaults to page.DefaultSize.
	PageSize uint32

	// SchemaDir is the directory schema.LoadDirectory scans for a
	// table's versioned .ini files, one subdirectory per table.
	SchemaDir string

	// DefaultBlobLimit is loaded and validated here only; schema.Parse
	// does not read it and gives a table whose .ini file omits blob_limit
	// schema.DefaultBlobInlineThreshold, which is also this field's default.
	DefaultBlobLimit int64

	// SyncRateLimitBytesPerSec is loaded and validated here only; 0 means
	// unlimited. page.File.Sync does not read it and applies no rate limit.
	SyncRateLimitBytesPerSec int64
}

// NewDefaultOptions returns an Options with every field set to the
// engine's built-in defaults, the same zero-config starting point
// page.Open gives a caller that passes a zero-value page.Options.
func NewDefaultOptions() Options {
	return Options{
		PageSize:                 page.DefaultSize,
		SchemaDir:                "schemas",
		DefaultBlobLimit:         schema.DefaultBlobInlineThreshold,
		SyncRateLimitBytesPerSec: 0,
	}
}

// Load builds Options from v, falling back to NewDefaultOptions for any
// key v does not have set (by file, env var, or explicit default
// registered on v). Callers that want PRINBEE_* environment overrides
// should call v.SetEnvPrefix(config.EnvPrefix) and v.AutomaticEnv()
// before calling Load.
func Load(v *viper.Viper) (Options, error) {
	opts := NewDefaultOptions()

	if v.IsSet("page_size") {
		opts.PageSize = uint32(v.GetUint64("page_size"))
	}
	if v.IsSet("schema_dir") {
		opts.SchemaDir = v.GetString("schema_dir")
	}
	if v.IsSet("default_blob_limit") {
		opts.DefaultBlobLimit = v.GetInt64("default_blob_limit")
	}
	if v.IsSet("sync_rate_limit_bytes_per_sec") {
		opts.SyncRateLimitBytesPerSec = v.GetInt64("sync_rate_limit_bytes_per_sec")
	}

	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Validate checks the invariants page.Open and schema.Table.Parse would
// otherwise reject individually, so a misconfigured engine fails at
// startup instead of on the first table it opens.
func (o Options) Validate() error {
	if o.PageSize == 0 || o.PageSize&(o.PageSize-1) != 0 {
		return errtype.Validation("config: page_size %d is not a power of two", o.PageSize)
	}
	if strings.TrimSpace(o.SchemaDir) == "" {
		return errtype.Validation("config: schema_dir must not be empty")
	}
	if o.DefaultBlobLimit != 0 && o.DefaultBlobLimit < 128 {
		return errtype.Validation("config: default_blob_limit must be 0 or >= 128, got %d", o.DefaultBlobLimit)
	}
	if o.SyncRateLimitBytesPerSec < 0 {
		return errtype.Validation("config: sync_rate_limit_bytes_per_sec must not be negative")
	}
	return nil
}

// NewViper returns a Viper instance pre-configured for this module's
// convention: a "prinbee" config file discovered in the current
// directory or $HOME, overridable by PRINBEE_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("prinbee")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}
