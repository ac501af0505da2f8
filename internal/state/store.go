// Package state caches resolved concept models in SQLite so that a build
// can be compared with the previous one.
package state

import (
	"context"
	"time"

	"github.com/leapstack-labs/conceptc/pkg/concept"
)

// BuildStatus is the outcome of a build.
type BuildStatus string

// Build statuses.
const (
	BuildRunning   BuildStatus = "running"
	BuildCompleted BuildStatus = "completed"
	BuildFailed    BuildStatus = "failed"
)

// Build is one recorded build.
type Build struct {
	ID          string
	Status      BuildStatus
	StartedAt   time.Time
	CompletedAt *time.Time
	Scripts     int
	Concepts    int
	Error       string
}

// Store persists builds and their concepts.
type Store interface {
	CreateBuild(ctx context.Context, scripts int) (*Build, error)
	CompleteBuild(ctx context.Context, id string, status BuildStatus, errMsg string) error
	SaveConcepts(ctx context.Context, buildID string, records []concept.Record) error
	LoadConcepts(ctx context.Context, buildID string) ([]concept.Record, error)
	LatestBuild(ctx context.Context) (*Build, error)
	ListBuilds(ctx context.Context, limit int) ([]*Build, error)
	Prune(ctx context.Context, keep int) (int, error)
	Close() error
}
