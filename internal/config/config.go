// Package config loads the consumer's TOML configuration file, following
// the teacher's cmd/mive/config.go pattern: identity field-name mapping so
// struct field names are the TOML keys verbatim.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"time"
	"unicode"

	"github.com/naoina/toml"
)

// tomlSettings mirrors cmd/mive/config.go's tomlSettings: field names pass
// through unchanged in both directions, and an unknown key names the
// struct and field in its error rather than failing silently.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// Config is the consumer's full configuration (SPEC_FULL.md A.3): store,
// caches, update source, and the per-batch tuning knobs of spec §4.1.
type Config struct {
	Postgres Postgres
	Redis    Redis
	Source   Source
	Ingest   Ingest
}

// Postgres is the projection store connection (SPEC_FULL.md D.2).
type Postgres struct {
	DSN string
}

// Redis is the shared connection and per-tier key namespacing for both
// cache tiers (spec §6.2).
type Redis struct {
	Addr                 string
	Password             string `toml:",omitempty"`
	DB                   int    `toml:",omitempty"`
	BlockchainDataPrefix string
	UserDefinedPrefix    string
	KeySeparator         string
}

// Source is the update-source gRPC dial target and subscribe parameters
// (spec §4.1).
type Source struct {
	Target         string
	StartingHeight int32
	BatchMaxSize   int
	BatchMaxTimeMs int64
}

// BatchMaxTime is Source.BatchMaxTimeMs as a time.Duration.
func (s Source) BatchMaxTime() time.Duration {
	return time.Duration(s.BatchMaxTimeMs) * time.Millisecond
}

// Ingest carries the one oracle address configured to drive label
// extraction and asset metadata (spec §4.2.3 step 2, §6.4 chain scoping).
type Ingest struct {
	OracleAddress string
	ChainID       byte
}

// Load reads and decodes a TOML file at path (cmd/mive/config.go's
// loadConfig, generalized to one Config type rather than embedding a
// node.Config).
func Load(path string) (Config, error) {
	var cfg Config

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("config: opening %s: %w", path, err)
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(path + ", " + err.Error())
	}
	if err != nil {
		return cfg, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	return cfg, nil
}
