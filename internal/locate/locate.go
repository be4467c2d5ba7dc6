// Package locate builds and queries mlocate-style databases through the
// external updatedb and locate tools.
package locate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hnoss/searchtools/internal/command"
	"github.com/hnoss/searchtools/internal/logger"
)

// ErrNotFound is returned when locate reports no match for a file.
var ErrNotFound = errors.New("not found in locate database")

const (
	DefaultUpdatedb      = "updatedb"
	DefaultLocate        = "locate"
	DefaultBuildTimeout  = 10 * time.Minute
	DefaultLookupTimeout = 30 * time.Second
)

// Options configures a Locator. Zero values fall back to the defaults above.
type Options struct {
	UpdatedbPath  string
	LocatePath    string
	BuildTimeout  time.Duration
	LookupTimeout time.Duration
}

// Locator wraps the index-build and lookup tools.
type Locator struct {
	runner command.Runner
	opts   Options
	log    logger.Logger
}

// New creates a Locator. A nil runner uses command.ExecRunner.
func New(runner command.Runner, opts Options, log logger.Logger) *Locator {
	if runner == nil {
		runner = command.ExecRunner{}
	}
	if opts.UpdatedbPath == "" {
		opts.UpdatedbPath = DefaultUpdatedb
	}
	if opts.LocatePath == "" {
		opts.LocatePath = DefaultLocate
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = DefaultBuildTimeout
	}
	if opts.LookupTimeout <= 0 {
		opts.LookupTimeout = DefaultLookupTimeout
	}
	return &Locator{runner: runner, opts: opts, log: logger.OrNop(log)}
}

// BuildArgs returns the updatedb arguments for a build.
func BuildArgs(dir, outPath string, excludeDirs []string) []string {
	args := []string{"--database-root", dir, "--output", outPath}
	if len(excludeDirs) > 0 {
		args = append(args, "--prunepaths", strings.Join(excludeDirs, " "))
	}
	return args
}

// LookupArgs returns the locate arguments for a lookup.
func LookupArgs(file, dbPath string) []string {
	return []string{"--database", dbPath, "--nofollow", file}
}

// Build indexes dir into outPath. excludeDirs are passed as prune paths.
func (l *Locator) Build(ctx context.Context, dir, outPath string, excludeDirs []string) error {
	ctx, cancel := context.WithTimeout(ctx, l.opts.BuildTimeout)
	defer cancel()

	l.log.LogInfo(fmt.Sprintf("Building locate database %s from %s", outPath, dir))
	if _, err := l.runner.Run(ctx, l.opts.UpdatedbPath, BuildArgs(dir, outPath, excludeDirs)...); err != nil {
		return fmt.Errorf("failed to build locate database: %s - %w", outPath, timeoutOr(ctx, err))
	}
	return nil
}

// Lookup returns the paths locate prints for file, one per line. A non-zero
// exit from locate means no match and yields ErrNotFound.
func (l *Locator) Lookup(ctx context.Context, file, dbPath string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.opts.LookupTimeout)
	defer cancel()

	out, err := l.runner.Run(ctx, l.opts.LocatePath, LookupArgs(file, dbPath)...)
	if err != nil {
		err = timeoutOr(ctx, err)
		if errors.Is(err, command.ErrTimeout) {
			return nil, fmt.Errorf("failed to query locate database: %s - %w", dbPath, err)
		}
		var exitErr *command.ExitError
		if errors.As(err, &exitErr) {
			l.log.LogDebug(fmt.Sprintf("locate exited %d for %s", exitErr.ExitCode, file))
			return nil, fmt.Errorf("%w: %s", ErrNotFound, file)
		}
		return nil, fmt.Errorf("failed to query locate database: %s - %w", dbPath, err)
	}

	text := strings.TrimSpace(string(out))
	if text == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, file)
	}
	return strings.Split(text, "\n"), nil
}

// timeoutOr maps an expired deadline on ctx to command.ErrTimeout.
func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(err, command.ErrTimeout) {
		return err
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", command.ErrTimeout, err)
	}
	return err
}
