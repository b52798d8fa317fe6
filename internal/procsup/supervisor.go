// Package procsup spawns LSP server child processes and tears them down
// through a bounded, fault-tolerant graceful-stop sequence.
package procsup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/axivo/mcp-lsp/internal/logging"
)

// Process wraps one spawned LSP server child, exposing its stdio pipes for
// the rpc.Channel to use and its lifecycle for the supervisor to manage.
type Process struct {
	cmd    *exec.Cmd
	Stdin  io.WriteCloser
	Stdout io.ReadCloser

	doneOnce sync.Once
	done     chan struct{}
	waitErr  error
}

// PID returns the child's process id.
func (p *Process) PID() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Done returns a channel closed once the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// WaitErr returns the error Wait() returned, valid only after Done() closes.
func (p *Process) WaitErr() error { return p.waitErr }

// Spawn starts command with args in dir, attaching piped stdin/stdout/stderr
// (stderr is drained to the bridge's log at debug level) and inheriting the
// parent's environment. The start attempt fails if any of the three pipes
// cannot be attached.
func Spawn(ctx context.Context, command string, args []string, dir string) (*Process, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("procsup: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("procsup: stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("procsup: stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("procsup: start %s: %w", command, err)
	}

	p := &Process{cmd: cmd, Stdin: stdin, Stdout: stdout, done: make(chan struct{})}
	go p.drainStderr(stderr)
	go p.wait()
	return p, nil
}

func (p *Process) drainStderr(stderr io.ReadCloser) {
	var buf bytes.Buffer
	_, _ = io.Copy(&buf, stderr)
	if buf.Len() > 0 {
		logging.Debug().Int("pid", p.PID()).Str("stderr", buf.String()).Msg("lsp server stderr")
	}
}

func (p *Process) wait() {
	p.waitErr = p.cmd.Wait()
	p.doneOnce.Do(func() { close(p.done) })
}

// Terminate sends SIGTERM. Safe to call on an already-exited process.
func (p *Process) Terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

// Kill sends SIGKILL. Safe to call on an already-exited process.
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	return p.cmd.Process.Kill()
}

// Shutdowner is implemented by the RPC channel for the parts of the stop
// sequence that speak LSP.
type Shutdowner interface {
	Call(ctx context.Context, method string, params any, result any) error
	Notify(method string, params any) error
	Close() error
}

// StopSequence runs the strict six-step graceful shutdown from spec §4.C:
// shutdown request, grace wait, exit notification, channel close, SIGTERM,
// then SIGKILL if the process is still alive. Each step's errors are logged
// and do not abort the remaining steps.
func StopSequence(ctx context.Context, ch Shutdowner, p *Process, gracePeriod time.Duration) {
	if err := ch.Call(ctx, "shutdown", nil, nil); err != nil {
		logging.Warn().Err(err).Msg("procsup: shutdown request failed")
	}

	select {
	case <-p.Done():
		_ = ch.Close()
		return
	case <-time.After(gracePeriod):
	}

	if err := ch.Notify("exit", nil); err != nil {
		logging.Warn().Err(err).Msg("procsup: exit notification failed")
	}
	_ = ch.Close()

	select {
	case <-p.Done():
		return
	default:
	}

	if err := p.Terminate(); err != nil {
		logging.Warn().Err(err).Msg("procsup: SIGTERM failed")
	}
	select {
	case <-p.Done():
		return
	case <-time.After(gracePeriod):
	}

	if err := p.Kill(); err != nil {
		logging.Warn().Err(err).Msg("procsup: SIGKILL failed")
	}
	<-p.Done()
}
