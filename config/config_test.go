package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/wudi/pdfsnap/fonts"
)

func env(vals map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := vals[key]
		return v, ok
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", env(nil))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("defaults changed (-want +got):\n%s", diff)
	}
	if cfg.Addr() != "0.0.0.0:6970" {
		t.Fatalf("unexpected addr %s", cfg.Addr())
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pdfsnap.yaml")
	yamlDoc := `
port: 8080
workers: 2
footerUrl: https://verify.example/v/
fetchTimeout: 5s
fonts:
  - family: serif
    weight: bold
    path: /fonts/serif-bold.ttf
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, env(map[string]string{
		"PORT":         "9000",
		"REDIS_URL":    "redis://localhost:6379/0",
		"JWT_SECRET":   "s3cret",
		"LENIENT":      "true",
		"FILE_TTL":     "2h",
		"FOOTER_LABEL": "Code",
	}))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Default()
	want.Port = 9000
	want.Workers = 2
	want.FooterURL = "https://verify.example/v/"
	want.FooterLabel = "Code"
	want.FetchTimeout = 5 * time.Second
	want.RedisURL = "redis://localhost:6379/0"
	want.JWTSecret = "s3cret"
	want.Lenient = true
	want.FileTTL = 2 * time.Hour
	want.Fonts = []fonts.Override{{Family: "serif", Weight: "bold", Path: "/fonts/serif-bold.ttf"}}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.FontConfig().Overrides; len(got) != 1 {
		t.Fatalf("expected one font override, got %v", got)
	}
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad port", map[string]string{"PORT": "http"}, "PORT"},
		{"port range", map[string]string{"PORT": "70000"}, "out of range"},
		{"workers", map[string]string{"WORKERS": "0"}, "workers must be positive"},
		{"timeout", map[string]string{"FETCH_TIMEOUT": "soon"}, "FETCH_TIMEOUT"},
		{"bytes", map[string]string{"MAX_FETCH_BYTES": "-1"}, "max fetch bytes"},
		{"no output", map[string]string{"OUTPUT_DIR": ""}, "output dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load("", env(tc.env))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), env(nil)); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
