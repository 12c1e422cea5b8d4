package isolate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/topic-harvester/internal/harvest"
	"github.com/JakeFAU/topic-harvester/internal/pool"
)

const (
	stderrTailBytes = 2048
	shutdownGrace   = 5 * time.Second
)

// Command describes how to start a worker process.
type Command struct {
	Path string
	Args []string
	// Env replaces the child environment when non-nil.
	Env []string
	// Stderr receives the child's stderr in addition to the crash tail.
	// Defaults to os.Stderr.
	Stderr io.Writer
}

// ProcessExecutor is a pool.Executor backed by one long-lived child process.
// A child that dies mid-task fails only that task; the next Execute starts a
// replacement.
type ProcessExecutor struct {
	command Command
	logger  *zap.Logger
	child   *child
	spawned int
}

var _ pool.Executor = (*ProcessExecutor)(nil)

// NewProcessExecutor constructs an executor. The child starts on first use.
func NewProcessExecutor(command Command, logger *zap.Logger) *ProcessExecutor {
	if command.Stderr == nil {
		command.Stderr = os.Stderr
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProcessExecutor{command: command, logger: logger}
}

// Factory returns a pool.ExecutorFactory spawning one child per worker. The
// children share command.Stderr through a lock.
func Factory(command Command, logger *zap.Logger) pool.ExecutorFactory {
	if command.Stderr == nil {
		command.Stderr = os.Stderr
	}
	command.Stderr = &lockedWriter{w: command.Stderr}
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(_ context.Context, id int) (pool.Executor, error) {
		return NewProcessExecutor(command, logger.With(zap.Int("worker", id))), nil
	}
}

// Spawned reports how many child processes this executor has started.
func (e *ProcessExecutor) Spawned() int {
	return e.spawned
}

// Execute sends task to the child and waits for its result.
func (e *ProcessExecutor) Execute(ctx context.Context, task pool.Task) (harvest.Result, error) {
	if e.child == nil {
		c, err := startChild(e.command)
		if err != nil {
			return harvest.Result{}, err
		}
		e.child = c
		e.spawned++
		e.logger.Debug("worker process started", zap.Int("pid", c.cmd.Process.Pid))
	}

	res, err := e.child.roundTrip(ctx, task)
	if err != nil {
		c := e.child
		e.child = nil
		exitErr := c.kill()
		e.logger.Warn("worker process lost",
			zap.String("identifier", task.Identifier),
			zap.Error(err),
			zap.NamedError("exit", exitErr),
		)
		return harvest.Result{}, c.describe(err, exitErr)
	}
	return res, nil
}

// Close asks the child to exit by closing its stdin, killing it if it does
// not exit within the grace period.
func (e *ProcessExecutor) Close() error {
	if e.child == nil {
		return nil
	}
	c := e.child
	e.child = nil
	return c.shutdown(shutdownGrace)
}

type child struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	enc   *json.Encoder
	dec   *json.Decoder
	tail  *tailBuffer

	waitOnce sync.Once
	waitErr  error
}

func startChild(command Command) (*child, error) {
	if command.Path == "" {
		return nil, errors.New("worker command path is required")
	}
	// #nosec G204 -- the worker command is built by the driver, not from input.
	cmd := exec.Command(command.Path, command.Args...)
	if command.Env != nil {
		cmd.Env = command.Env
	}

	tail := &tailBuffer{max: stderrTailBytes}
	cmd.Stderr = io.MultiWriter(command.Stderr, tail)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create worker stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create worker stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start worker process: %w", err)
	}

	return &child{
		cmd:   cmd,
		stdin: stdin,
		enc:   json.NewEncoder(stdin),
		dec:   json.NewDecoder(stdout),
		tail:  tail,
	}, nil
}

func (c *child) roundTrip(ctx context.Context, task pool.Task) (harvest.Result, error) {
	if err := c.enc.Encode(task); err != nil {
		return harvest.Result{}, fmt.Errorf("send task: %w", err)
	}

	type reply struct {
		res harvest.Result
		err error
	}
	done := make(chan reply, 1)
	go func() {
		var res harvest.Result
		err := c.dec.Decode(&res)
		done <- reply{res: res, err: err}
	}()

	select {
	case <-ctx.Done():
		return harvest.Result{}, fmt.Errorf("await result: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, io.EOF) {
				return harvest.Result{}, errors.New("worker process closed its output")
			}
			return harvest.Result{}, fmt.Errorf("read result: %w", r.err)
		}
		return r.res, nil
	}
}

func (c *child) wait() error {
	c.waitOnce.Do(func() {
		c.waitErr = c.cmd.Wait()
	})
	return c.waitErr
}

func (c *child) kill() error {
	_ = c.stdin.Close()
	if c.cmd.ProcessState == nil && c.cmd.Process != nil {
		_ = c.cmd.Process.Kill()
	}
	return c.wait()
}

func (c *child) shutdown(grace time.Duration) error {
	if err := c.stdin.Close(); err != nil {
		return c.kill()
	}
	done := make(chan error, 1)
	go func() { done <- c.wait() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("worker process exited with error: %w", err)
		}
		return nil
	case <-time.After(grace):
		_ = c.cmd.Process.Kill()
		<-done
		return fmt.Errorf("worker process did not exit within %s", grace)
	}
}

func (c *child) describe(cause, exitErr error) error {
	msg := cause.Error()
	if exitErr != nil {
		msg += " (" + exitErr.Error() + ")"
	}
	if tail := strings.TrimSpace(c.tail.String()); tail != "" {
		msg += ": " + lastLine(tail)
	}
	return errors.New(msg)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append([]byte(nil), t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}
