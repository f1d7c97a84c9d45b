// Copyright 2026 The remap Authors
// SPDX-License-Identifier: MIT

package main

import (
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/tailscale/hujson"
	"remap.256lights.llc/pkg"
	"remap.256lights.llc/pkg/internal/mappingstore"
)

type globalConfig struct {
	Debug        bool        `json:"debug"`
	DB           string      `json:"db"`
	DefaultOrder remap.Order `json:"defaultOrder"`
	Listen       string      `json:"listen"`
	Jobs         int         `json:"jobs"`
}

// defaultGlobalConfig returns the configuration used
// when no configuration files or environment variables are present.
func defaultGlobalConfig() *globalConfig {
	g := &globalConfig{
		DefaultOrder: remap.DictionaryOrder,
		Listen:       "localhost:8080",
		Jobs:         4,
	}
	if dir := dataDir(); dir != "" {
		g.DB = filepath.Join(dir, "remap", "mappings.db")
	}
	return g
}

func (g *globalConfig) mergeEnvironment() error {
	if path := os.Getenv("REMAP_DB"); path != "" {
		g.DB = path
	}
	if s := os.Getenv("REMAP_ORDER"); s != "" {
		order, err := remap.ParseOrder(s)
		if err != nil {
			return fmt.Errorf("REMAP_ORDER: %v", err)
		}
		g.DefaultOrder = order
	}
	return nil
}

func (g *globalConfig) mergeFiles(paths iter.Seq[string]) error {
	for path := range paths {
		huJSONData, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		jsonData, err := hujson.Standardize(huJSONData)
		if err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
		if err := jsonv2.Unmarshal(jsonData, g, jsonv2.RejectUnknownMembers(false)); err != nil {
			return fmt.Errorf("read %s: %v", path, err)
		}
	}

	return nil
}

// UnmarshalJSONFrom unmarshals the configuration object from the JSON decoder,
// merging any fields in the JSON object with existing values.
func (g *globalConfig) UnmarshalJSONFrom(in *jsontext.Decoder) error {
	tok, err := in.ReadToken()
	if err != nil {
		return err
	}
	if got := tok.Kind(); got != '{' {
		return fmt.Errorf("config must be an object not a %v", got)
	}

	for {
		keyToken, err := in.ReadToken()
		if err != nil {
			return err
		}
		switch kind := keyToken.Kind(); kind {
		case '}':
			return nil
		case '"':
			// Keep going.
		default:
			return fmt.Errorf("unexpected non-string key (%v) in object", kind)
		}

		switch k := keyToken.String(); k {
		case "debug":
			if err := jsonv2.UnmarshalDecode(in, &g.Debug); err != nil {
				return fmt.Errorf("unmarshal config.debug: %w", err)
			}
		case "db":
			if err := jsonv2.UnmarshalDecode(in, &g.DB); err != nil {
				return fmt.Errorf("unmarshal config.db: %w", err)
			}
		case "defaultOrder":
			if err := jsonv2.UnmarshalDecode(in, &g.DefaultOrder); err != nil {
				return fmt.Errorf("unmarshal config.defaultOrder: %w", err)
			}
		case "listen":
			if err := jsonv2.UnmarshalDecode(in, &g.Listen); err != nil {
				return fmt.Errorf("unmarshal config.listen: %w", err)
			}
		case "jobs":
			if err := jsonv2.UnmarshalDecode(in, &g.Jobs); err != nil {
				return fmt.Errorf("unmarshal config.jobs: %w", err)
			}
		default:
			if reject, _ := jsonv2.GetOption(in.Options(), jsonv2.RejectUnknownMembers); reject {
				return fmt.Errorf("unmarshal config: unknown field %q", k)
			}
			if err := in.SkipValue(); err != nil {
				return err
			}
		}
	}
}

func (g *globalConfig) validate() error {
	if g.DB == "" {
		return fmt.Errorf("database path not set (use --db or REMAP_DB)")
	}
	if !g.DefaultOrder.IsValid() {
		return fmt.Errorf("invalid default order %v", g.DefaultOrder)
	}
	if g.Jobs < 1 {
		return fmt.Errorf("jobs must be positive (got %d)", g.Jobs)
	}
	return nil
}

// openStore opens the mapping database,
// creating its parent directory if necessary.
func (g *globalConfig) openStore() (*mappingstore.Store, error) {
	if err := os.MkdirAll(filepath.Dir(g.DB), 0o755); err != nil {
		return nil, fmt.Errorf("open mapping database: %v", err)
	}
	return mappingstore.Open(g.DB, nil), nil
}
