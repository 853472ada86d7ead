package app

import (
	"strings"
	"testing"
)

func TestRun_UnknownCommand(t *testing.T) {
	t.Parallel()

	if code := Run([]string{"normalize"}); code != 2 {
		t.Fatalf("unexpected exit code: got %d want 2", code)
	}
	if code := Run(nil); code != 2 {
		t.Fatalf("unexpected exit code without args: got %d want 2", code)
	}
}

func TestBuildUnitFile(t *testing.T) {
	t.Parallel()

	unit := buildUnitFile(unitSpec{
		Description: "goals.zone ingestion loops",
		User:        "goals",
		WorkDir:     "/srv/goals-zone",
		Binary:      "/usr/local/bin/goals-zone",
		Args:        []string{"run", "--env", "/srv/goals-zone/.env"},
		After:       "network-online.target",
	})

	for _, want := range []string{
		"User=goals",
		"WorkingDirectory=/srv/goals-zone",
		"ExecStart=/usr/local/bin/goals-zone run --env /srv/goals-zone/.env",
		"WantedBy=multi-user.target",
	} {
		if !strings.Contains(unit, want) {
			t.Fatalf("unit file missing %q:\n%s", want, unit)
		}
	}
}

func TestReadKey(t *testing.T) {
	t.Parallel()

	key, err := readKey(strings.NewReader("  s3cret-key \nignored\n"))
	if err != nil {
		t.Fatalf("read key: %v", err)
	}
	if key != "s3cret-key" {
		t.Fatalf("unexpected key: got %q want %q", key, "s3cret-key")
	}
	if _, err := readKey(strings.NewReader("\n")); err == nil {
		t.Fatalf("expected empty input to fail")
	}
}

func TestRunFetchFixtures_RejectsUnknownMode(t *testing.T) {
	t.Parallel()

	if code := runFetchFixtures([]string{"--mode", "weekly"}); code != 2 {
		t.Fatalf("unexpected exit code: got %d want 2", code)
	}
}

func TestRunAddAlias_ValidatesFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing team", args: []string{"--alias", "PSG"}},
		{name: "negative team", args: []string{"--team-id", "-3", "--alias", "PSG"}},
		{name: "blank alias", args: []string{"--team-id", "5", "--alias", "  "}},
	}
	for _, tc := range tests {
		if code := runAddAlias(tc.args); code != 2 {
			t.Fatalf("unexpected exit code for %s: got %d want 2", tc.name, code)
		}
	}
}
