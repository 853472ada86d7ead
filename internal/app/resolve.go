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
	"github.com/meneses-pt/goals.zone/internal/extract"
	"github.com/meneses-pt/goals.zone/internal/globaltime"
	"github.com/meneses-pt/goals.zone/internal/resolver"
	"github.com/meneses-pt/goals.zone/internal/teammatch"
)

// runResolve resolves one title against stored matches without writing anything.
func runResolve(args []string) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	title := fs.String("title", "", "Post title to resolve")
	createdRaw := fs.String("created-at", "", "Post creation time, RFC3339 (now if empty)")
	highlights := fs.Bool("highlights", false, "Treat the title as a highlights post (searches 24h ahead)")
	timeout := fs.Duration("timeout", 30*time.Second, "Resolution timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	text := strings.TrimSpace(*title)
	if text == "" && fs.NArg() > 0 {
		text = strings.TrimSpace(strings.Join(fs.Args(), " "))
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "--title is required")
		return 2
	}
	created := globaltime.UTC()
	if raw := strings.TrimSpace(*createdRaw); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "--created-at must be RFC3339: %v\n", err)
			return 2
		}
		created = parsed.UTC()
	}
	until := created
	if *highlights {
		until = created.Add(24 * time.Hour)
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

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	matcher, err := teammatch.LoadMatcher(ctx, pool)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load affiliate terms: %v\n", err)
		return 1
	}
	recognizer, err := newRecognizer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build NER client: %v\n", err)
		return 1
	}

	out, err := resolver.New(pool, matcher, recognizer, nil, logger).Resolve(ctx, text, created, until)
	if err != nil {
		logger.Error().Err(err).Str("title", text).Msg("resolve failed")
		fmt.Fprintf(os.Stderr, "Resolve failed: %v\n", err)
		return 1
	}

	fmt.Printf("regex   home=%q away=%q minute=%q ok=%t\n", out.Regex.Home, out.Regex.Away, out.Regex.Minute, out.RegexOK)
	fmt.Printf("ner     home=%q away=%q player=%q minute=%q\n", out.NER.Home, out.NER.Away, out.NER.Player, out.NER.Minute)
	fmt.Printf("agree   %s\n", extract.Classify(out.Regex.Home, out.Regex.Away, out.NER.Home, out.NER.Away))
	if !out.Resolved {
		pair, _ := out.NominalPair()
		fmt.Printf("result  unresolved candidates=%d nominal=%q vs %q\n", len(out.Candidates), pair.Home, pair.Away)
		return 1
	}
	fmt.Printf(
		"result  match=%d %s vs %s kickoff=%s via=%s swapped=%t candidates=%d\n",
		out.Match.MatchID, out.Match.HomeName, out.Match.AwayName,
		out.Match.Datetime.Format(time.RFC3339), out.Source, out.Swapped, len(out.Candidates),
	)
	return 0
}
