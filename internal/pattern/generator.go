package pattern

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/nerrad567/gray-logic-actuation/internal/actuation"
)

const (
	scriptExt = ".lua"

	defaultTimeout   = time.Second
	defaultMaxPoints = 10000
)

// Logger defines the logging interface used by the generator.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Generator.
type Options struct {
	// Dir holds the scripts. Empty disables Generate and List.
	Dir string
	// Timeout bounds a single script run. Zero means one second.
	Timeout time.Duration
	// MaxPoints caps the points a script may emit. Zero means 10000.
	MaxPoints int
}

// Generator runs pattern scripts. It is safe for concurrent use; every run
// gets its own Lua state.
type Generator struct {
	opts   Options
	logger Logger
}

// New creates a Generator. A nil logger discards output.
func New(opts Options, logger Logger) *Generator {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = defaultMaxPoints
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &Generator{opts: opts, logger: logger}
}

// Generate runs the named script from the patterns directory.
func (g *Generator) Generate(ctx context.Context, name string) (actuation.Waveform, error) {
	path, err := g.Path(name)
	if err != nil {
		return nil, err
	}

	code, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	return g.GenerateString(ctx, name, string(code))
}

// GenerateString runs code directly. name is only used in errors and logs.
func (g *Generator) GenerateString(ctx context.Context, name, code string) (actuation.Waveform, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	L := newSandbox()
	defer L.Close()
	L.SetContext(ctx)

	s := &script{name: name, maxPoints: g.opts.MaxPoints, logger: g.logger}
	s.register(L)

	start := time.Now()
	if err := L.DoString(code); err != nil {
		switch {
		case s.err != nil:
			return nil, s.err
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, name, g.opts.Timeout)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			return nil, fmt.Errorf("%w: %s: %w", ErrScriptFailed, name, err)
		}
	}

	g.logger.Debug("pattern generated",
		"pattern", name,
		"points", len(s.points),
		"duration", s.points.Duration(),
		"elapsed", time.Since(start),
	)
	return s.points, nil
}

// Path returns the file path of a script inside the patterns directory.
func (g *Generator) Path(name string) (string, error) {
	if g.opts.Dir == "" {
		return "", ErrDisabled
	}
	clean, err := sanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(g.opts.Dir, clean), nil
}

// List returns the available script names, sorted. A missing directory
// yields an empty list.
func (g *Generator) List() ([]string, error) {
	if g.opts.Dir == "" {
		return nil, ErrDisabled
	}
	entries, err := os.ReadDir(g.opts.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading patterns directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == scriptExt {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// sanitizeName accepts only a bare file name ending in .lua.
func sanitizeName(name string) (string, error) {
	if !strings.HasSuffix(name, scriptExt) {
		return "", fmt.Errorf("%w: %q must end with %s", ErrInvalidName, name, scriptExt)
	}
	clean := filepath.Base(name)
	if clean != name || clean == scriptExt || strings.Contains(clean, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return clean, nil
}

// newSandbox returns a state with only the side-effect free libraries.
func newSandbox() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range []string{"dofile", "loadfile", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
