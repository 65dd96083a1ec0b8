// Package config loads and validates the crawl job configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the fully-resolved job configuration, defaults applied.
type Config struct {
	Seeds           string
	DestinationWARC string
	LinkTimeout     uint
	CrawlTasks      uint
	CrawlRecursion  uint
	AcceptLanguages []string
	RespectRobots   bool
}

var mandatoryFields = []string{"seeds"}

var typeChecks = map[string]string{
	"seeds":            "string",
	"destination_warc": "string",
	"link_timeout":     "uint",
	"crawl_tasks":      "uint",
	"crawl_recursion":  "uint",
	"accept_languages": "[]string",
	"respect_robots":   "bool",
}

// Load reads the job configuration at path, auto-detecting its format
// from the file extension (.json, .yaml/.yml, .toml), validates it, and
// returns a Config with defaults applied for any key left unset.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	fields, err := decode(path, raw)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if errs := validate(fields); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid config %s: %s", path, strings.Join(msgs, "; "))
	}

	return build(fields), nil
}

func decode(path string, raw []byte) (map[string]any, error) {
	fields := make(map[string]any)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unrecognized config extension %q", ext)
	}
	return fields, nil
}

func validate(fields map[string]any) []error {
	var errs []error

	for _, field := range mandatoryFields {
		if _, ok := fields[field]; !ok {
			errs = append(errs, &MandatoryFieldMissingError{Field: field})
		}
	}

	for field, value := range fields {
		expected, known := typeChecks[field]
		if !known {
			continue // unknown keys are tolerated
		}
		if !matchesType(value, expected) {
			errs = append(errs, &WrongFieldTypeError{Field: field, Expected: expected})
		}
	}

	return errs
}

func matchesType(value any, expected string) bool {
	switch expected {
	case "string":
		_, ok := value.(string)
		return ok
	case "bool":
		_, ok := value.(bool)
		return ok
	case "uint":
		return isUint(value)
	case "[]string":
		return isStringSlice(value)
	default:
		return false
	}
}

func isUint(value any) bool {
	switch v := value.(type) {
	case int:
		return v >= 0
	case int64:
		return v >= 0
	case uint64:
		return true
	case float64:
		return v >= 0 && v == float64(int64(v))
	default:
		return false
	}
}

func asUint(value any, fallback uint) uint {
	switch v := value.(type) {
	case int:
		return uint(v)
	case int64:
		return uint(v)
	case uint64:
		return uint(v)
	case float64:
		return uint(v)
	default:
		return fallback
	}
}

func isStringSlice(value any) bool {
	items, ok := value.([]any)
	if !ok {
		return false
	}
	for _, item := range items {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}

func build(fields map[string]any) *Config {
	cfg := &Config{
		DestinationWARC: time.Now().UTC().Format(time.RFC3339),
		LinkTimeout:     5000,
		CrawlTasks:      20,
		CrawlRecursion:  2,
		AcceptLanguages: nil,
		RespectRobots:   true,
	}

	if v, ok := fields["seeds"].(string); ok {
		cfg.Seeds = v
	}
	if v, ok := fields["destination_warc"].(string); ok {
		cfg.DestinationWARC = v
	}
	if v, ok := fields["link_timeout"]; ok {
		cfg.LinkTimeout = asUint(v, cfg.LinkTimeout)
	}
	if v, ok := fields["crawl_tasks"]; ok {
		cfg.CrawlTasks = asUint(v, cfg.CrawlTasks)
	}
	if v, ok := fields["crawl_recursion"]; ok {
		cfg.CrawlRecursion = asUint(v, cfg.CrawlRecursion)
	}
	if v, ok := fields["accept_languages"].([]any); ok {
		langs := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				langs = append(langs, s)
			}
		}
		cfg.AcceptLanguages = langs
	}
	if v, ok := fields["respect_robots"].(bool); ok {
		cfg.RespectRobots = v
	}

	return cfg
}
