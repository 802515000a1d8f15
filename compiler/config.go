package compiler

import (
	"os"

	"github.com/goccy/go-yaml"
)

// Config is the YAML configuration of a translator.
type Config struct {
	// Backend names the SQL dialect: sqlite (the default), pgsql, mysql
	// or oracle.
	Backend string `yaml:"backend,omitempty"`
	// Limit, when positive, caps the number of rows of every query.
	Limit int64 `yaml:"limit,omitempty"`
	// CacheSize is the capacity of the plan cache.  Zero disables it.
	CacheSize int `yaml:"cache-size,omitempty"`
	// Catalog is the path of a YAML catalog or a catalog snapshot.
	Catalog string    `yaml:"catalog,omitempty"`
	Log     LogConfig `yaml:"log,omitempty"`
}

type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	Path  string `yaml:"path,omitempty"`
}

func ParseConfig(b []byte) (Config, error) {
	var conf Config
	err := yaml.UnmarshalWithOptions(b, &conf, yaml.DisallowUnknownField())
	return conf, err
}

func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(b)
}
