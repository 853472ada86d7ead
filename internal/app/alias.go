package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/meneses-pt/goals.zone/internal/cli"
)

// runAddAlias stores an alternative name for a team so titles using it resolve.
func runAddAlias(args []string) int {
	fs := flag.NewFlagSet("add-alias", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	teamID := fs.Int64("team-id", 0, "Team the alias belongs to")
	alias := fs.String("alias", "", "Alternative team name, e.g. PSG")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *teamID < 1 {
		fmt.Fprintln(os.Stderr, "--team-id must be a positive team id")
		return 2
	}
	name := strings.TrimSpace(*alias)
	if name == "" {
		fmt.Fprintln(os.Stderr, "--alias is required")
		return 2
	}

	cfg, logger, code := bootstrap(envLoader)
	if code != 0 {
		return code
	}
	pool, code := connect(cfg, logger)
	if code != 0 {
		return code
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	inserted, err := pool.AddTeamAlias(ctx, *teamID, name)
	if err != nil {
		logger.Error().Err(err).Int64("team_id", *teamID).Msg("add team alias failed")
		fmt.Fprintf(os.Stderr, "Failed to add alias: %v\n", err)
		return 1
	}
	if !inserted {
		fmt.Printf("Alias %q already exists for team %d\n", name, *teamID)
		return 0
	}
	logger.Info().Int64("team_id", *teamID).Str("alias", name).Msg("team alias added")
	fmt.Printf("Added alias %q for team %d\n", name, *teamID)
	return 0
}
