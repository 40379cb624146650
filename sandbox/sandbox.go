package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/strslice"
	"github.com/docker/docker/client"
	"github.com/docker/docker/errdefs"
	"github.com/docker/docker/pkg/stdcopy"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	logrus "github.com/sirupsen/logrus"
)

// MountPath is the fixed in-container path the workspace is bound to. It
// is the agreed contract between the runner and every generated script.
const MountPath = "/app/workspace"

const teardownTimeout = 30 * time.Second

// dockerAPI is the slice of the Docker client the runner uses.
// *client.Client satisfies it.
type dockerAPI interface {
	ImageInspectWithRaw(ctx context.Context, imageID string) (types.ImageInspect, []byte, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// Options configures a Runner.
type Options struct {
	Image         string
	ContainerName string
	Timeout       time.Duration
	MemoryLimitMB int64
	NanoCPUs      int64
}

// Runner executes untrusted code strings in ephemeral Docker containers.
// The container name is fixed per Runner, so a mutex serializes runs
// against that identity; concurrent callers queue rather than race on
// create/destroy.
type Runner struct {
	docker dockerAPI
	opts   Options
	logger *logrus.Logger
	mu     sync.Mutex
}

// New creates a Runner backed by the local Docker daemon.
func New(opts Options) (*Runner, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %v", err)
	}
	return newRunner(dockerClient, opts), nil
}

func newRunner(api dockerAPI, opts Options) *Runner {
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Minute
	}

	logger := logrus.New()
	if err := os.MkdirAll("logs", 0o755); err == nil {
		logFile, err := os.OpenFile("logs/sandbox.log", os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
		if err == nil {
			logger.SetOutput(logFile)
		}
	}

	return &Runner{
		docker: api,
		opts:   opts,
		logger: logger,
	}
}

// CheckImage verifies the execution image is available locally. It never
// pulls; a missing image is reported to the caller.
func (r *Runner) CheckImage(ctx context.Context) error {
	if _, _, err := r.docker.ImageInspectWithRaw(ctx, r.opts.Image); err != nil {
		return fmt.Errorf("sandbox image %q not available locally: %w", r.opts.Image, err)
	}
	return nil
}

// Execute runs one code string to completion inside a fresh container and
// normalizes every outcome into an ExecutionResult. It never returns an
// error: setup and execution failures are reported with the RunnerFailure
// exit code and a descriptive Stderr. The container is force-removed on
// every exit path once creation has happened.
func (r *Runner) Execute(ctx context.Context, req ExecutionRequest) ExecutionResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := validateWorkspace(req.WorkspacePath); err != nil {
		return r.failure(err)
	}

	if err := r.CheckImage(ctx); err != nil {
		return r.failure(err)
	}

	if err := r.reclaimStale(ctx); err != nil {
		return r.failure(err)
	}

	cfg := &container.Config{
		Image: r.opts.Image,
		// The code travels as an interpreter argument, never through a
		// shared file, so no quoting or encoding step can corrupt it.
		Cmd: strslice.StrSlice{"python", "-c", req.Code},
	}
	hostCfg := &container.HostConfig{
		Binds: []string{req.WorkspacePath + ":" + MountPath + ":rw"},
		Resources: container.Resources{
			Memory:   r.opts.MemoryLimitMB * 1024 * 1024,
			NanoCPUs: r.opts.NanoCPUs,
		},
	}

	created, err := r.docker.ContainerCreate(ctx, cfg, hostCfg, nil, nil, r.opts.ContainerName)
	if err != nil {
		return r.failure(fmt.Errorf("failed to create container: %w", err))
	}
	defer r.teardown(created.ID)

	if err := r.docker.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return r.failure(fmt.Errorf("failed to start container %s: %w", shortID(created.ID), err))
	}

	exitCode, timedOut, err := r.wait(ctx, created.ID)
	if err != nil {
		return r.failure(fmt.Errorf("failed waiting for container %s: %w", shortID(created.ID), err))
	}
	if timedOut {
		r.logger.Warnf("Execution timed out after %v, removing container %s", r.opts.Timeout, shortID(created.ID))
		return ExecutionResult{
			Stderr:   fmt.Sprintf("execution timed out after %v", r.opts.Timeout),
			ExitCode: RunnerFailure,
			TimedOut: true,
		}
	}

	stdout, stderr, err := r.collectLogs(ctx, created.ID)
	if err != nil {
		return r.failure(fmt.Errorf("failed to collect logs from container %s: %w", shortID(created.ID), err))
	}

	r.logger.Printf("Execution finished in %s (exit code %d)", shortID(created.ID), exitCode)
	return ExecutionResult{Stdout: stdout, Stderr: stderr, ExitCode: exitCode}
}

// reclaimStale force-removes a leftover container holding this runner's
// name from an earlier failed run. Absence is not an error.
func (r *Runner) reclaimStale(ctx context.Context) error {
	err := r.docker.ContainerRemove(ctx, r.opts.ContainerName, container.RemoveOptions{Force: true})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to reclaim stale container %s: %w", r.opts.ContainerName, err)
	}
	r.logger.Printf("Reclaimed stale container: %s", r.opts.ContainerName)
	return nil
}

// wait blocks until the container exits, the bounded wait expires, or the
// caller's context is done.
func (r *Runner) wait(ctx context.Context, containerID string) (exitCode int, timedOut bool, err error) {
	statusCh, errCh := r.docker.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)

	timer := time.NewTimer(r.opts.Timeout)
	defer timer.Stop()

	select {
	case status := <-statusCh:
		return int(status.StatusCode), false, nil
	case err := <-errCh:
		return 0, false, err
	case <-timer.C:
		return 0, true, nil
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
}

// collectLogs retrieves the standard output and standard error streams,
// demultiplexed into separate buffers. The two streams are never merged.
func (r *Runner) collectLogs(ctx context.Context, containerID string) (string, string, error) {
	rc, err := r.docker.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
	})
	if err != nil {
		return "", "", err
	}
	defer rc.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, rc); err != nil {
		return "", "", err
	}
	return stdout.String(), stderr.String(), nil
}

// teardown force-removes the container. It uses a fresh context so cleanup
// still runs when the caller's context is already expired, and it only
// logs failures so they never mask the run's primary result.
func (r *Runner) teardown(containerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
	defer cancel()

	if err := r.docker.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); err != nil && !errdefs.IsNotFound(err) {
		r.logger.Errorf("Failed to remove container %s: %v", shortID(containerID), err)
	}
}

func (r *Runner) failure(err error) ExecutionResult {
	r.logger.Errorf("Sandbox run failed: %v", err)
	return ExecutionResult{Stderr: err.Error(), ExitCode: RunnerFailure}
}

func validateWorkspace(path string) error {
	if !filepath.IsAbs(path) {
		return fmt.Errorf("workspace path %q is not absolute", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("workspace path %q is not accessible: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("workspace path %q is not a directory", path)
	}
	return nil
}

// shortID returns a shortened container ID for logging.
func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
