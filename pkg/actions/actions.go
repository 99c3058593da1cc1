// Package actions implements the built-in action endpoints as configured
// commands. Each endpoint maps to an operator-supplied argv run via os/exec;
// the server itself carries no platform-specific control code, so the same
// binary serves any host that can express the action as a command.
//
// Two shapes of action exist:
//   - status actions (/ping, /sleep, /lock, ...): the command's exit status
//     decides the response; output is discarded
//   - binary actions (/screenshot): the command's stdout is returned to the
//     client as binary content and optionally archived server-side
package actions

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"remotectl/internal/logger"
	"remotectl/pkg/archive"
	"remotectl/pkg/dispatch"
	"remotectl/pkg/protocol"
)

// Spec describes one configured action endpoint.
type Spec struct {
	// Name identifies the action in logs.
	Name string

	// Path is the request path the action is served on.
	Path string

	// Command is the argv to run. An empty command makes the action a pure
	// reachability check that always succeeds with an empty 200.
	Command []string

	// Binary marks actions whose stdout is opaque binary content to return
	// to the client (image/png on the wire).
	Binary bool
}

// DefaultSpecs returns the standard action set with no commands bound. The
// operator attaches commands via configuration; unbound status actions still
// respond 200 so the endpoint set is stable across deployments.
func DefaultSpecs() []Spec {
	return []Spec{
		{Name: "ping", Path: "/ping"},
		{Name: "sleep", Path: "/sleep"},
		{Name: "sleep_display", Path: "/sleep_display"},
		{Name: "minimize", Path: "/minimize"},
		{Name: "screenshot", Path: "/screenshot", Binary: true},
		{Name: "lock", Path: "/lock"},
	}
}

// Runner executes configured actions with a shared timeout and an optional
// artifact archive for binary output.
type Runner struct {
	timeout time.Duration
	store   archive.Store // nil disables archiving
}

// NewRunner creates a Runner. A zero timeout disables the per-command
// deadline; store may be nil.
func NewRunner(timeout time.Duration, store archive.Store) *Runner {
	return &Runner{
		timeout: timeout,
		store:   store,
	}
}

// RegisterAll binds a handler for every spec on the mux.
func (r *Runner) RegisterAll(mux *dispatch.Mux, specs []Spec) {
	for _, spec := range specs {
		mux.Register(spec.Path, spec.Name, r.Handler(spec))
	}
}

// Handler returns the dispatch handler for one action spec.
func (r *Runner) Handler(spec Spec) dispatch.HandlerFunc {
	return func(ctx context.Context, req *protocol.Request) *protocol.Response {
		return r.run(ctx, spec)
	}
}

func (r *Runner) run(ctx context.Context, spec Spec) *protocol.Response {
	if len(spec.Command) == 0 {
		if spec.Binary {
			// A binary action without a command has nothing to return.
			logger.Warn("Action %s has no command configured", spec.Name)
			return protocol.FromStatus(500)
		}
		return protocol.FromStatus(200)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)

	start := time.Now()
	output, err := cmd.Output()
	if err != nil {
		logger.Error("Action %s failed after %v: %v", spec.Name, time.Since(start), err)
		return protocol.FromStatus(500)
	}

	logger.Debug("Action %s completed in %v", spec.Name, time.Since(start))

	if !spec.Binary {
		return protocol.FromStatus(200)
	}

	if len(output) == 0 {
		logger.Error("Action %s produced no output", spec.Name)
		return protocol.FromStatus(500)
	}

	r.archiveArtifact(ctx, spec, output)

	return protocol.FromBinary(output)
}

// archiveArtifact stores binary output server-side. Best-effort: failures
// are logged and never affect the response.
func (r *Runner) archiveArtifact(ctx context.Context, spec Spec, data []byte) {
	if r.store == nil {
		return
	}

	key := fmt.Sprintf("%s/%s-%s.png",
		spec.Name,
		time.Now().UTC().Format("20060102T150405Z"),
		uuid.NewString(),
	)

	if err := r.store.Put(ctx, key, data); err != nil {
		logger.Warn("Failed to archive %s artifact %s: %v", spec.Name, key, err)
		return
	}

	logger.Debug("Archived %s artifact as %s", spec.Name, key)
}
