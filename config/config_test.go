package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lanrat/zonepush/liquidns"
	"github.com/lanrat/zonepush/plan"
	"github.com/spf13/pflag"
)

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.StringP("file", "f", "", "")
	fs.StringP("username", "u", "", "")
	fs.StringP("password", "p", "", "")
	fs.BoolP("verbose", "v", false, "")
	fs.BoolP("dry-run", "n", false, "")
	fs.String("nameserver", "", "")
	fs.Int("parallel", 4, "")
	return fs
}

func TestLoadDefaults(t *testing.T) {
	testChdir(t, t.TempDir())
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.API.URL != liquidns.DefaultBaseURL {
		t.Errorf("Expected default API URL, got %s", cfg.API.URL)
	}
	if cfg.API.Nameserver != plan.DefaultNameserver {
		t.Errorf("Expected default nameserver, got %s", cfg.API.Nameserver)
	}
	if cfg.Push.Parallel != 4 {
		t.Errorf("Expected 4 workers, got %d", cfg.Push.Parallel)
	}
	if cfg.Log.MaxSize != 10 {
		t.Errorf("Expected log max size 10, got %d", cfg.Log.MaxSize)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	iniPath := filepath.Join(dir, "zonepush.ini")
	content := `file = from-ini.zone

[auth]
username = ini-user
password = ini-pass

[api]
nameserver = ns.ini.test

[push]
parallel = 8
`
	if err := os.WriteFile(iniPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ZONEPUSH_CONFIG", iniPath)
	t.Setenv("ZONEPUSH_USERNAME", "env-user")
	t.Setenv("ZONEPUSH_PARALLEL", "2")

	fs := testFlags()
	if err := fs.Parse([]string{"--parallel", "16", "-f", "flag.zone"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(fs)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{name: "flag beats ini", got: cfg.File, expected: "flag.zone"},
		{name: "env beats ini", got: cfg.Username, expected: "env-user"},
		{name: "ini beats default", got: cfg.Password, expected: "ini-pass"},
		{name: "ini nameserver", got: cfg.API.Nameserver, expected: "ns.ini.test"},
		{name: "flag beats env", got: cfg.Push.Parallel, expected: 16},
		{name: "default", got: cfg.API.URL, expected: liquidns.DefaultBaseURL},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if test.got != test.expected {
				t.Errorf("Expected %v, got %v", test.expected, test.got)
			}
		})
	}
}

func TestLoadMissingINI(t *testing.T) {
	testChdir(t, t.TempDir())
	t.Setenv("ZONEPUSH_CONFIG", filepath.Join(t.TempDir(), "missing.ini"))
	if _, err := Load(nil); err == nil {
		t.Fatal("Expected error for missing INI file")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ZONEPUSH_PASSWORD=dotenv-pass\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv does not override variables that are already set
	t.Setenv("ZONEPUSH_PASSWORD", "")
	if err := os.Unsetenv("ZONEPUSH_PASSWORD"); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Password != "dotenv-pass" {
		t.Errorf("Expected password from .env, got %q", cfg.Password)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "complete", cfg: Config{File: "a.zone", Username: "u", Password: "p"}},
		{name: "missing file", cfg: Config{Username: "u", Password: "p"}, wantErr: true},
		{name: "missing password", cfg: Config{File: "a.zone", Username: "u"}, wantErr: true},
		{name: "dry run without credentials", cfg: Config{File: "a.zone", DryRun: true}},
		{name: "dry run without file", cfg: Config{DryRun: true}, wantErr: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.cfg.Validate()
			if test.wantErr {
				if !errors.Is(err, ErrMissingOption) {
					t.Errorf("Expected ErrMissingOption, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}
