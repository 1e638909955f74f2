package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "library"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, "metapath.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaultsAndResolves(t *testing.T) {
	path := writeConfig(t, `
configVersion: 1
libraries:
  - name: music
    root: ./library/./
    mount: /music
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			t.Fatalf("unexpected problems: %v", verr.Problems)
		}
		t.Fatalf("Validate error: %v", err)
	}

	if cfg.MetaFiles.Self != DefaultSelfFile || cfg.MetaFiles.Item != DefaultItemFile {
		t.Fatalf("expected default meta files, got %+v", cfg.MetaFiles)
	}
	if cfg.Scan.Workers != DefaultWorkers {
		t.Fatalf("expected %d workers, got %d", DefaultWorkers, cfg.Scan.Workers)
	}

	want := filepath.Join(filepath.Dir(path), "library")
	if got := cfg.ResolvePath(cfg.Libraries[0].Root); got != want {
		t.Fatalf("ResolvePath expected %q, got %q", want, got)
	}
	if got := cfg.ResolvePath("../shared/../db.sqlite"); got != filepath.Join(filepath.Dir(filepath.Dir(path)), "db.sqlite") {
		t.Fatalf("ResolvePath did not normalize parent segments: %q", got)
	}
}

func TestValidateCollectsProblems(t *testing.T) {
	path := writeConfig(t, `
configVersion: 2
libraries:
  - name: music
    root: ./missing
    mount: music
  - name: music
    root: ./library
    mount: /a/../b
metaFiles:
  self: meta.yml
  item: meta.yml
scan:
  workers: -1
  ignore: ["("]
server:
  rateLimit:
    enabled: true
logging:
  level: loud
  format: xml
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	err = cfg.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	expected := []string{
		"configVersion must be 1",
		"libraries[0].mount invalid: must start with /",
		"libraries[0].root invalid",
		"libraries[1].mount invalid: must be normalized",
		"libraries[1].name \"music\" is duplicated",
		"logging.format must be console|json",
		"logging.level invalid",
		"metaFiles.self and metaFiles.item must differ",
		"scan.ignore[0] invalid",
		"scan.workers must be > 0",
		"server.rateLimit.burst must be > 0",
		"server.rateLimit.rps must be > 0",
	}
	joined := strings.Join(verr.Problems, "\n")
	for _, want := range expected {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected problem %q in:\n%s", want, joined)
		}
	}
}

func TestCacheSize(t *testing.T) {
	cases := []struct {
		body string
		want int
	}{
		{"", DefaultCacheSize},
		{"cache:\n  size: 0\n", DefaultCacheSize},
		{"cache:\n  size: 32\n", 32},
		{"cache:\n  size: -1\n", -1},
	}

	for _, tt := range cases {
		path := writeConfig(t, `
configVersion: 1
libraries:
  - name: music
    root: ./library
    mount: /music
`+tt.body)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load error: %v", err)
		}
		if err := cfg.Validate(); err != nil {
			t.Fatalf("Validate(%q) error: %v", tt.body, err)
		}
		if cfg.Cache.Size != tt.want {
			t.Fatalf("cache size for %q: expected %d, got %d", tt.body, tt.want, cfg.Cache.Size)
		}
	}
}

func TestValidateFileName(t *testing.T) {
	cases := map[string]bool{
		"self.yml":   true,
		"":           false,
		".":          false,
		"..":         false,
		"a/self.yml": false,
		"./self.yml": false,
	}
	for name, ok := range cases {
		err := validateFileName(name)
		if ok && err != nil {
			t.Fatalf("validateFileName(%q) unexpected error: %v", name, err)
		}
		if !ok && err == nil {
			t.Fatalf("validateFileName(%q) expected error", name)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err == nil || !strings.HasPrefix(err.Error(), "read config:") {
		t.Fatalf("expected read config error, got %v", err)
	}
}
