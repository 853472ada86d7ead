package cli

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvLoader_LoadsRequestedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.env")
	if err := os.WriteFile(path, []byte("GOALS_ZONE_CLI_TEST=loaded\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(OverrideEnvVar, "")
	t.Setenv("GOALS_ZONE_CLI_TEST", "")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, ".env", "")
	if err := fs.Parse([]string{"--env", path}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}
	if loaded != path {
		t.Fatalf("unexpected loaded path: got %q want %q", loaded, path)
	}
	if got := os.Getenv("GOALS_ZONE_CLI_TEST"); got != "loaded" {
		t.Fatalf("unexpected env value: got %q want %q", got, "loaded")
	}
}

func TestEnvLoader_CandidatesAreDeduplicated(t *testing.T) {
	t.Setenv(OverrideEnvVar, ".env")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	loader := AddEnvFlag(fs, ".env", "")

	candidates := loader.candidates()
	if len(candidates) != 1 || candidates[0] != ".env" {
		t.Fatalf("unexpected candidates: %v", candidates)
	}
}
