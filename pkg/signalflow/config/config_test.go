package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/signalflow/pkg/signalflow/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"nil map", nil},
		{"empty map", map[string]any{}},
		{"with values", map[string]any{"key": "value"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.NotNil(t, cfg.Raw())
		})
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		defaultVal string
		want       string
	}{
		{"key exists", map[string]any{"name": "todos"}, "default", "todos"},
		{"key missing", map[string]any{"other": "value"}, "default", "default"},
		{"empty string", map[string]any{"name": ""}, "default", ""},
		{"wrong type int", map[string]any{"name": 123}, "default", "default"},
		{"nil map", nil, "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.String("name", tt.defaultVal))
		})
	}
}

func TestBool(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		defaultVal bool
		want       bool
	}{
		{"true value", map[string]any{"withPatches": true}, false, true},
		{"false value", map[string]any{"withPatches": false}, true, false},
		{"key missing", map[string]any{"other": true}, false, false},
		{"wrong type string", map[string]any{"withPatches": "true"}, false, false},
		{"wrong type int", map[string]any{"withPatches": 1}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(tt.data)
			assert.Equal(t, tt.want, cfg.Bool("withPatches", tt.defaultVal))
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  time.Duration
	}{
		{"string duration", "30s", 30 * time.Second},
		{"string complex duration", "1h30m", 90 * time.Minute},
		{"milliseconds string", "500ms", 500 * time.Millisecond},
		{"int seconds", 60, 60 * time.Second},
		{"int64 seconds", int64(45), 45 * time.Second},
		{"float64 seconds", 30.5, 30*time.Second + 500*time.Millisecond},
		{"time.Duration directly", 5 * time.Minute, 5 * time.Minute},
		{"zero int", 0, 0},
		{"invalid string", "invalid", 10 * time.Second},
		{"wrong type bool", true, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"effectTimeout": tt.value})
			assert.Equal(t, tt.want, cfg.Duration("effectTimeout", 10*time.Second))
		})
	}

	t.Run("key missing", func(t *testing.T) {
		assert.Equal(t, time.Second, config.New(nil).Duration("effectTimeout", time.Second))
	})
}

func TestSection(t *testing.T) {
	cfg := config.New(map[string]any{
		"stores": map[string]any{
			"todos": map[string]any{"withPatches": true},
		},
		"name": "root",
	})

	todos := cfg.Section("stores").Section("todos")
	assert.True(t, todos.Bool("withPatches", false))

	assert.False(t, cfg.Section("missing").Has("anything"))
	assert.False(t, cfg.Section("name").Has("anything"), "non-map value yields empty section")
}

func TestHas(t *testing.T) {
	cfg := config.New(map[string]any{"exists": nil})

	assert.True(t, cfg.Has("exists"))
	assert.False(t, cfg.Has("missing"))
}

func TestFromYAML(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
		check   func(*testing.T, config.Config)
	}{
		{
			"store options",
			`name: todos
withPatches: true
enableMapSet: false
effectTimeout: 250ms`,
			false,
			func(t *testing.T, cfg config.Config) {
				assert.Equal(t, "todos", cfg.String("name", ""))
				assert.True(t, cfg.Bool("withPatches", false))
				assert.False(t, cfg.Bool("enableMapSet", true))
				assert.Equal(t, 250*time.Millisecond, cfg.Duration("effectTimeout", 0))
			},
		},
		{
			"nested stores",
			`stores:
  search:
    tracing: true`,
			false,
			func(t *testing.T, cfg config.Config) {
				assert.True(t, cfg.Section("stores").Section("search").Bool("tracing", false))
			},
		},
		{
			"empty yaml",
			``,
			false,
			func(t *testing.T, cfg config.Config) {
				assert.False(t, cfg.Has("anything"))
			},
		},
		{
			"invalid yaml",
			`invalid: yaml: content:`,
			true,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.FromYAML([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestFromJSON(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"name": "search", "metrics": true, "effectTimeout": 2}`))
	require.NoError(t, err)
	assert.Equal(t, "search", cfg.String("name", ""))
	assert.True(t, cfg.Bool("metrics", false))
	// JSON numbers decode as float64 seconds.
	assert.Equal(t, 2*time.Second, cfg.Duration("effectTimeout", 0))

	_, err = config.FromJSON([]byte(`{invalid json}`))
	assert.Error(t, err)
}

func TestFromTOML(t *testing.T) {
	doc := `
name = "cart"
withPatches = true
effectTimeout = 3

[stores.todos]
name = "todos"
effectTimeout = "150ms"
`
	cfg, err := config.FromTOML([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "cart", cfg.String("name", ""))
	assert.True(t, cfg.Bool("withPatches", false))
	// TOML integers decode as int64 seconds.
	assert.Equal(t, 3*time.Second, cfg.Duration("effectTimeout", 0))

	todos := cfg.Section("stores").Section("todos")
	assert.Equal(t, "todos", todos.String("name", ""))
	assert.Equal(t, 150*time.Millisecond, todos.Duration("effectTimeout", 0))

	_, err = config.FromTOML([]byte(`name = `))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	t.Run("expands environment", func(t *testing.T) {
		t.Setenv("SIGNALFLOW_STORE_NAME", "from-env")

		cfg, err := config.Load(strings.NewReader(`name: ${SIGNALFLOW_STORE_NAME}`), config.YAML)
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.String("name", ""))
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := config.Load(strings.NewReader(`name=x`), config.Format("ini"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported config format")
	})
}

func TestFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	yamlPath := filepath.Join(tmpDir, "store.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("name: fromyaml\nwithPatches: true"), 0o644))

	ymlPath := filepath.Join(tmpDir, "store.YML")
	require.NoError(t, os.WriteFile(ymlPath, []byte("name: fromyml"), 0o644))

	jsonPath := filepath.Join(tmpDir, "store.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name": "fromjson"}`), 0o644))

	tomlPath := filepath.Join(tmpDir, "store.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`name = "fromtoml"`), 0o644))

	txtPath := filepath.Join(tmpDir, "store.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("content"), 0o644))

	tests := []struct {
		name     string
		path     string
		wantName string
		errMsg   string
	}{
		{"yaml file", yamlPath, "fromyaml", ""},
		{"uppercase yml file", ymlPath, "fromyml", ""},
		{"json file", jsonPath, "fromjson", ""},
		{"toml file", tomlPath, "fromtoml", ""},
		{"unsupported extension", txtPath, "", "unsupported config file extension"},
		{"file not found", filepath.Join(tmpDir, "nonexistent.yaml"), "", "read config file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := config.FromFile(tt.path)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, cfg.String("name", ""))
		})
	}
}
