package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-substrate/jid-conformance/jiderr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, Default().Workers, cfg.Workers)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Empty(t, cfg.Preppers)
	assert.Empty(t, cfg.Corpus)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFile(t *testing.T) {
	p := writeConfig(t, `{
  "preppers": ["precis", "mellium"],
  "workers": 4,
  "timeout": "250ms",
  "report": "out/evidence.json",
  "log": {"level": "debug"}
}`)
	cfg, err := Load(Options{File: p})
	require.NoError(t, err)
	assert.Equal(t, []string{"precis", "mellium"}, cfg.Preppers)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, "out/evidence.json", cfg.Report)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format, "absent keys keep their defaults")
}

func TestLoadPrecedence(t *testing.T) {
	p := writeConfig(t, `{"workers": 4, "preppers": ["precis"], "log": {"format": "json"}}`)
	t.Setenv("JIDPREP_WORKERS", "8")
	t.Setenv("JIDPREP_PREPPERS", "casefold, mellium,")
	t.Setenv("JIDPREP_TIMEOUT", "2s")
	t.Setenv("JIDPREP_UNRELATED", "ignored")

	cfg, err := Load(Options{File: p})
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, []string{"casefold", "mellium"}, cfg.Preppers)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
	assert.Equal(t, "json", cfg.Log.Format)

	cfg, err = Load(Options{File: p, Overrides: map[string]any{
		"workers":   16,
		"log.level": "error",
		"corpus":    []string{"extra"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Workers)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, []string{"extra"}, cfg.Corpus)
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	cases := map[string]string{
		"unknown field":    `{"workers": 2, "threads": 3}`,
		"trailing content": `{"workers": 2} {}`,
		"malformed":        `{"workers": `,
		"wrong type":       `{"workers": "many"}`,
		"bad duration":     `{"timeout": "soon"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(Options{File: writeConfig(t, body)})
			require.Error(t, err)
			assert.Equal(t, jiderr.ConfigInvalid, jiderr.ClassOf(err))
			assert.Equal(t, 2, jiderr.ClassOf(err).ExitCode())
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(Options{File: filepath.Join(t.TempDir(), "absent.json")})
	require.Error(t, err)
	assert.Equal(t, jiderr.ConfigInvalid, jiderr.ClassOf(err))
}

func TestLoadRejectsOutOfRangeValues(t *testing.T) {
	cases := map[string]map[string]any{
		"zero workers":     {"workers": 0},
		"too many workers": {"workers": 257},
		"negative timeout": {"timeout": "-1s"},
		"unknown level":    {"log.level": "loud"},
		"unknown format":   {"log.format": "xml"},
		"blank prepper":    {"preppers": []string{"precis", ""}},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(Options{Overrides: overrides})
			require.Error(t, err)
			assert.Equal(t, jiderr.ConfigInvalid, jiderr.ClassOf(err))
		})
	}
}

func TestLoadRejectsBadEnvironment(t *testing.T) {
	t.Setenv("JIDPREP_WORKERS", "lots")
	_, err := Load(Options{})
	require.Error(t, err)
	assert.Equal(t, jiderr.ConfigInvalid, jiderr.ClassOf(err))
}

func TestValidateNil(t *testing.T) {
	err := Validate(nil)
	require.Error(t, err)
	assert.Equal(t, jiderr.ConfigInvalid, jiderr.ClassOf(err))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, splitList(" a ,, b ,"))
	assert.Equal(t, []string{}, splitList(""))
}

func TestLoadIgnoresBlankEnvironment(t *testing.T) {
	t.Setenv("JIDPREP_LOG_LEVEL", "")
	t.Setenv("JIDPREP_WORKERS", "  ")
	cfg, err := Load(Options{})
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 1, cfg.Workers)
}
