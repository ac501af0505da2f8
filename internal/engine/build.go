package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/conceptc/internal/diff"
	"github.com/leapstack-labs/conceptc/internal/loader"
	"github.com/leapstack-labs/conceptc/internal/pipeline"
	"github.com/leapstack-labs/conceptc/internal/state"
	"github.com/leapstack-labs/conceptc/pkg/concept"
)

// BuildOptions control a build.
type BuildOptions struct {
	// Save records the build in the concept cache.
	Save bool
}

// Result is a completed build.
type Result struct {
	*pipeline.Result
	Files []loader.File
	// BuildID identifies the cached build. Empty when not saved.
	BuildID string
	// Previous is the last completed build, nil if there is none.
	Previous *state.Build
	// Diff compares the build with Previous.
	Diff diff.Result
}

// Build discovers the scripts and builds the concept model. With a cache
// configured the result is compared with the last completed build.
func (e *Engine) Build(ctx context.Context, opts BuildOptions) (*Result, error) {
	files, err := e.Discover()
	if err != nil {
		return nil, err
	}
	scripts := loader.Scripts(files)

	store, err := e.Store()
	if err != nil {
		return nil, err
	}

	var (
		previous  []concept.Record
		prevBuild *state.Build
		build     *state.Build
	)
	if store != nil {
		prevBuild, err = store.LatestBuild(ctx)
		if err != nil {
			return nil, err
		}
		if prevBuild != nil {
			if previous, err = store.LoadConcepts(ctx, prevBuild.ID); err != nil {
				return nil, err
			}
		}
		if opts.Save {
			if build, err = store.CreateBuild(ctx, len(scripts)); err != nil {
				return nil, err
			}
		}
	}

	res, err := e.Pipeline().Build(ctx, scripts)
	if err != nil {
		if build != nil {
			if cerr := store.CompleteBuild(context.WithoutCancel(ctx), build.ID, state.BuildFailed, err.Error()); cerr != nil {
				e.logger.Warn("failed to record build failure", "error", cerr)
			}
		}
		return nil, err
	}

	out := &Result{
		Result:   res,
		Files:    files,
		Previous: prevBuild,
	}
	records := res.Records()
	out.Diff = diff.Compare(previous, records)

	if build != nil {
		if err := e.save(ctx, store, build.ID, records); err != nil {
			return nil, err
		}
		out.BuildID = build.ID
	}
	return out, nil
}

func (e *Engine) save(ctx context.Context, store state.Store, id string, records []concept.Record) error {
	if err := store.SaveConcepts(ctx, id, records); err != nil {
		_ = store.CompleteBuild(context.WithoutCancel(ctx), id, state.BuildFailed, err.Error())
		return fmt.Errorf("failed to cache concepts: %w", err)
	}
	if err := store.CompleteBuild(ctx, id, state.BuildCompleted, ""); err != nil {
		return err
	}
	pruned, err := store.Prune(ctx, e.cfg.KeepBuilds)
	if err != nil {
		return err
	}
	e.logger.Debug("build cached", slog.String("id", id), slog.Int("pruned", pruned))
	return nil
}
