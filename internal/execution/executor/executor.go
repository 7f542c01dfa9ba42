package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"
	"time"

	"kodecompiler/internal/execution/model"
	"kodecompiler/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const (
	defaultRunTimeout     = 10 * time.Second
	defaultCompileTimeout = 10 * time.Second
	defaultMaxOutputLines = 300

	binaryName      = "code"
	cleanupAttempts = 3
	cleanupBackoff  = 100 * time.Millisecond
)

var javaClassPattern = regexp.MustCompile(`public\s+class\s+(\w+)`)

// Config holds executor limits.
type Config struct {
	RunTimeout     time.Duration
	CompileTimeout time.Duration
	MaxOutputLines int
	// WorkRoot is the directory temp workspaces are created under.
	// Empty means the system temp dir.
	WorkRoot string
}

// Executor runs source code for any registered language.
type Executor struct {
	registry *Registry
	cfg      Config
}

// New creates an executor over the given language registry.
func New(registry *Registry, cfg Config) *Executor {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	if cfg.CompileTimeout <= 0 {
		cfg.CompileTimeout = defaultCompileTimeout
	}
	if cfg.MaxOutputLines <= 0 {
		cfg.MaxOutputLines = defaultMaxOutputLines
	}
	return &Executor{registry: registry, cfg: cfg}
}

// Execute runs the source code and returns a structured result. It never
// returns an error and never panics: every failure mode, including internal
// ones, is converted into a failed ExecutionResult so a shared worker loop
// cannot be taken down by one bad job.
func (e *Executor) Execute(ctx context.Context, language, source, stdin string) (res model.ExecutionResult) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "executor panic", zap.Any("panic", r), zap.String("language", language))
			res = model.ExecutionResult{Success: false, Error: fmt.Sprintf("internal error: %v", r)}
		}
		res.ExecutionTime = time.Since(started).Seconds()
	}()

	spec, ok := e.registry.Get(language)
	if !ok {
		return model.ExecutionResult{Success: false, Error: fmt.Sprintf("Unsupported language: %s", language)}
	}

	workDir, err := os.MkdirTemp(e.cfg.WorkRoot, spec.ID+"-"+shortID()+"-")
	if err != nil {
		return model.ExecutionResult{Success: false, Error: fmt.Sprintf("failed to create work dir: %v", err)}
	}
	defer e.cleanup(ctx, workDir)

	vars := e.commandVars(spec, source, workDir)
	fileName := expand(spec.FileName, vars)
	if err := os.WriteFile(filepath.Join(workDir, fileName), []byte(source), 0644); err != nil {
		return model.ExecutionResult{Success: false, Error: fmt.Sprintf("failed to write source: %v", err)}
	}

	if len(spec.Compile) > 0 {
		if res, done := e.compile(ctx, spec, workDir, vars); done {
			return res
		}
	}

	return e.run(ctx, spec, workDir, stdin, vars)
}

func (e *Executor) compile(ctx context.Context, spec Spec, workDir string, vars map[string]string) (model.ExecutionResult, bool) {
	argv := expandAll(spec.Compile, vars)
	if _, err := exec.LookPath(argv[0]); err != nil {
		return toolchainMissing(spec), true
	}

	out, err := runCommand(ctx, workDir, argv, "", e.cfg.CompileTimeout)
	if err != nil {
		return model.ExecutionResult{Success: false, Error: fmt.Sprintf("compiler failed to start: %v", err)}, true
	}
	if out.timedOut {
		return model.ExecutionResult{
			Success: false,
			Error:   fmt.Sprintf("Compilation timeout (%.0f seconds)", e.cfg.CompileTimeout.Seconds()),
		}, true
	}
	if out.exitCode != 0 {
		return model.ExecutionResult{
			Success: false,
			Error:   "Compilation error:\n" + out.stderr,
		}, true
	}
	return model.ExecutionResult{}, false
}

func (e *Executor) run(ctx context.Context, spec Spec, workDir, stdin string, vars map[string]string) model.ExecutionResult {
	argv := expandAll(spec.Run, vars)
	// Compiled binaries live inside the work dir and need no lookup.
	if !strings.Contains(argv[0], string(os.PathSeparator)) {
		if _, err := exec.LookPath(argv[0]); err != nil {
			return toolchainMissing(spec)
		}
	}

	out, err := runCommand(ctx, workDir, argv, stdin, e.cfg.RunTimeout)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return toolchainMissing(spec)
		}
		return model.ExecutionResult{Success: false, Error: fmt.Sprintf("failed to start: %v", err)}
	}
	if out.timedOut {
		return model.ExecutionResult{
			Success: false,
			Error:   fmt.Sprintf("Execution timeout (%.0f seconds)", e.cfg.RunTimeout.Seconds()),
		}
	}

	stdout := strings.TrimSpace(out.stdout)
	stderr := strings.TrimSpace(out.stderr)
	if out.exitCode == 0 {
		output := limitOutput(stdout, e.cfg.MaxOutputLines)
		if output == "" {
			output = model.EmptyOutputSentinel
		}
		return model.ExecutionResult{Success: true, Output: output}
	}

	errMsg := stderr
	if errMsg == "" {
		errMsg = "Execution failed"
	}
	return model.ExecutionResult{
		Success: false,
		Output:  limitOutput(stdout, e.cfg.MaxOutputLines),
		Error:   errMsg,
	}
}

// commandVars resolves the placeholder table for one execution.
func (e *Executor) commandVars(spec Spec, source, workDir string) map[string]string {
	vars := map[string]string{
		placeholderBin: filepath.Join(workDir, binaryName),
	}
	if strings.Contains(spec.FileName, placeholderClass) {
		vars[placeholderClass] = javaClassName(source)
	}
	vars[placeholderFile] = expand(spec.FileName, vars)
	return vars
}

func (e *Executor) cleanup(ctx context.Context, dir string) {
	for attempt := 0; attempt < cleanupAttempts; attempt++ {
		if err := os.RemoveAll(dir); err == nil {
			return
		} else if attempt == cleanupAttempts-1 {
			logger.Warn(ctx, "work dir cleanup failed", zap.String("dir", dir), zap.Error(err))
			return
		}
		time.Sleep(cleanupBackoff)
	}
}

func toolchainMissing(spec Spec) model.ExecutionResult {
	return model.ExecutionResult{
		Success: false,
		Error: fmt.Sprintf("ERROR: %s is not installed on this system.\n\n"+
			"To use %s, please install %s first.", spec.Toolchain, spec.ID, spec.Toolchain),
	}
}

// javaClassName extracts the public class name, defaulting to Main.
func javaClassName(source string) string {
	if m := javaClassPattern.FindStringSubmatch(source); m != nil {
		return m[1]
	}
	return "Main"
}

func expand(s string, vars map[string]string) string {
	for key, value := range vars {
		s = strings.ReplaceAll(s, key, value)
	}
	return s
}

func expandAll(argv []string, vars map[string]string) []string {
	out := make([]string, len(argv))
	for i, arg := range argv {
		out[i] = expand(arg, vars)
	}
	return out
}

func shortID() string {
	return uuid.NewString()[:8]
}

type commandOutput struct {
	stdout   string
	stderr   string
	exitCode int
	timedOut bool
}

// runCommand executes argv inside dir with stdin wired in, both output
// streams captured, and a hard wall-clock timeout. On timeout the whole
// process group is killed so grandchildren cannot linger.
func runCommand(ctx context.Context, dir string, argv []string, stdin string, timeout time.Duration) (commandOutput, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(stdin)

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return commandOutput{}, err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	killGroup := func() {
		_ = unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
		<-done
	}

	select {
	case <-ctx.Done():
		killGroup()
		return commandOutput{stdout: stdoutBuf.String(), stderr: stderrBuf.String(), timedOut: true}, nil
	case <-timer.C:
		killGroup()
		return commandOutput{stdout: stdoutBuf.String(), stderr: stderrBuf.String(), timedOut: true}, nil
	case err := <-done:
		exitCode := 0
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				return commandOutput{}, err
			}
		}
		return commandOutput{
			stdout:   stdoutBuf.String(),
			stderr:   stderrBuf.String(),
			exitCode: exitCode,
		}, nil
	}
}
