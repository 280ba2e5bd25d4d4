/*
Package config provides typed access to store configuration loaded from
YAML, JSON or TOML.

# Overview

Config wraps a map[string]any and provides typed accessor methods that handle
missing keys and type mismatches gracefully by returning default values.
signalflow.WithConfig reads a Config to configure a store:

	name: todos
	withPatches: true
	enableMapSet: false
	metrics: true
	tracing: false
	effectTimeout: 5s

# Basic Usage

	cfg, err := config.FromFile("store.yaml")
	if err != nil {
	    log.Fatal(err)
	}

	st, err := signalflow.NewStore(initial, signalflow.WithConfig(cfg))

A single file may configure several stores by nesting them; Section returns
the nested map as its own Config:

	stores:
	  todos:
	    withPatches: true
	  search:
	    effectTimeout: 2s

	todos := cfg.Section("stores").Section("todos")

The same layout in TOML uses tables:

	[stores.todos]
	withPatches = true

# Type Coercion

Duration handles multiple input types:
  - string: parsed with time.ParseDuration ("30s", "1h30m")
  - int/int64/float64: interpreted as seconds
  - time.Duration: used directly

All methods return the default value if the key is missing or the value
cannot be converted to the requested type.

# Thread Safety

Config is safe for concurrent read access. The underlying map is not
modified after creation.
*/
package config
