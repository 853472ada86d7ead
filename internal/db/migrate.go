package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

// Extensions and the goals schema must exist before gorm creates tables; trigram
// indexes and constraints gorm cannot express run after.
//
//go:embed sql/pre_automigrate.sql
var preAutoMigrateSQL string

//go:embed sql/post_automigrate.sql
var postAutoMigrateSQL string

type migrationStep struct {
	label string
	run   func(ctx context.Context) error
}

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return errNotInitialized
	}

	steps := []migrationStep{
		{label: "pre-auto-migrate SQL", run: p.execScript(preAutoMigrateSQL)},
		{label: "gorm auto-migrate models", run: func(ctx context.Context) error {
			return p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...)
		}},
		{label: "post-auto-migrate SQL", run: p.execScript(postAutoMigrateSQL)},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("%s: %w", step.label, err)
		}
	}
	return nil
}

func (p *Pool) execScript(script string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		trimmed := strings.TrimSpace(script)
		if trimmed == "" {
			return nil
		}
		return p.gdb.WithContext(ctx).Exec(trimmed).Error
	}
}
