// Package sandbox runs generated patches in a subprocess, either on the
// host interpreter or inside a throwaway Docker container.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/ragdebug/internal/config"
	"github.com/lucasnoah/ragdebug/internal/metrics"
	"github.com/lucasnoah/ragdebug/internal/pipeline"
)

// DefaultTimeout applies when Execute is called with a non-positive timeout.
const DefaultTimeout = 20 * time.Second

// dockerGrace is added to the timeout to cover container start and teardown.
const dockerGrace = 10 * time.Second

// Executor runs patch text and reports what happened. It never returns an
// error: every failure is folded into a result with ReturnCode -1.
type Executor interface {
	Execute(ctx context.Context, code string, timeout time.Duration) pipeline.ExecutionResult
}

// New returns the executor selected by cfg.Backend.
func New(cfg config.SandboxConfig, logger *slog.Logger) (Executor, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.Interpreter, &ExecRunner{}, logger), nil
	case "docker":
		return NewDocker(cfg.Image, &ExecRunner{}, logger), nil
	default:
		return nil, fmt.Errorf("unknown sandbox backend %q", cfg.Backend)
	}
}

func orDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

func failed(prefix string, err error) pipeline.ExecutionResult {
	return pipeline.ExecutionResult{
		Stderr:     fmt.Sprintf("%s: %v", prefix, err),
		ReturnCode: -1,
		Ran:        true,
	}
}

func outcome(res pipeline.ExecutionResult) string {
	switch {
	case strings.HasPrefix(res.Stderr, "TIMEOUT:"), strings.HasPrefix(res.Stderr, "DOCKER ERROR: TIMEOUT:"):
		return metrics.OutcomeTimeout
	case res.ReturnCode == 0:
		return metrics.OutcomeOK
	case res.ReturnCode == -1:
		return metrics.OutcomeError
	default:
		return metrics.OutcomeNonZero
	}
}

// LocalExecutor writes the code to a temp file and runs it with the host interpreter.
type LocalExecutor struct {
	interpreter string
	cmd         CommandRunner
	logger      *slog.Logger
}

// NewLocal creates a LocalExecutor. An empty interpreter means "python".
func NewLocal(interpreter string, cmd CommandRunner, logger *slog.Logger) *LocalExecutor {
	if interpreter == "" {
		interpreter = "python"
	}
	return &LocalExecutor{interpreter: interpreter, cmd: cmd, logger: orDiscard(logger)}
}

func (e *LocalExecutor) Execute(ctx context.Context, code string, timeout time.Duration) pipeline.ExecutionResult {
	res := e.execute(ctx, ExtractCode(code), timeout)
	metrics.ObserveSandbox("local", outcome(res))
	return res
}

func (e *LocalExecutor) execute(ctx context.Context, code string, timeout time.Duration) pipeline.ExecutionResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	f, err := os.CreateTemp("", "ragdebug-*.py")
	if err != nil {
		return failed("EXEC ERROR", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString(code); err != nil {
		f.Close()
		return failed("EXEC ERROR", err)
	}
	if err := f.Close(); err != nil {
		return failed("EXEC ERROR", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	stdout, stderr, exitCode, err := e.cmd.Run(runCtx, filepath.Dir(path), e.interpreter, path)
	e.logger.Debug("local execution finished", "exit_code", exitCode, "elapsed", time.Since(start))

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return pipeline.ExecutionResult{
			Stderr:     fmt.Sprintf("TIMEOUT: %s %s timed out after %s", e.interpreter, path, timeout),
			ReturnCode: -1,
			Ran:        true,
		}
	}
	if err != nil {
		return failed("EXEC ERROR", err)
	}
	return pipeline.ExecutionResult{Stdout: stdout, Stderr: stderr, ReturnCode: exitCode, Ran: true}
}

// DockerExecutor runs the code in a disposable container with the code
// directory mounted at /work.
type DockerExecutor struct {
	image  string
	cmd    CommandRunner
	logger *slog.Logger
}

// NewDocker creates a DockerExecutor for image.
func NewDocker(image string, cmd CommandRunner, logger *slog.Logger) *DockerExecutor {
	if image == "" {
		image = config.DefaultImage
	}
	return &DockerExecutor{image: image, cmd: cmd, logger: orDiscard(logger)}
}

func (e *DockerExecutor) Execute(ctx context.Context, code string, timeout time.Duration) pipeline.ExecutionResult {
	res := e.execute(ctx, ExtractCode(code), timeout)
	metrics.ObserveSandbox("docker", outcome(res))
	return res
}

func (e *DockerExecutor) execute(ctx context.Context, code string, timeout time.Duration) pipeline.ExecutionResult {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	dir, err := os.MkdirTemp("", "ragdebug-docker-")
	if err != nil {
		return failed("DOCKER ERROR", err)
	}
	defer os.RemoveAll(dir)

	if err := os.WriteFile(filepath.Join(dir, "runfile.py"), []byte(code), 0o644); err != nil {
		return failed("DOCKER ERROR", err)
	}

	name := "debug-sandbox-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	runCtx, cancel := context.WithTimeout(ctx, timeout+dockerGrace)
	defer cancel()

	stdout, stderr, exitCode, err := e.cmd.Run(runCtx, dir, "docker",
		"run", "--rm", "--name", name,
		"-v", dir+":/work",
		"-w", "/work",
		e.image,
		"python", "runfile.py",
	)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		e.removeContainer(name)
		return pipeline.ExecutionResult{
			Stderr:     fmt.Sprintf("DOCKER ERROR: TIMEOUT: container %s timed out after %s", name, timeout+dockerGrace),
			ReturnCode: -1,
			Ran:        true,
		}
	}
	if err != nil {
		return failed("DOCKER ERROR", err)
	}
	e.logger.Debug("docker execution finished", "container", name, "exit_code", exitCode)
	return pipeline.ExecutionResult{Stdout: stdout, Stderr: stderr, ReturnCode: exitCode, Ran: true}
}

// removeContainer force-removes a container left behind by a timeout.
func (e *DockerExecutor) removeContainer(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), dockerGrace)
	defer cancel()
	if _, stderr, code, err := e.cmd.Run(ctx, "", "docker", "rm", "-f", name); err != nil || code != 0 {
		e.logger.Warn("failed to remove timed-out container", "container", name, "exit_code", code, "stderr", stderr, "error", err)
	}
}
