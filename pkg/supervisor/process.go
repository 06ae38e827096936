package supervisor

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
)

// Process is a running child process.
type Process interface {
	// Pid returns the operating system process id.
	Pid() int

	// Done is closed once the process has exited.
	Done() <-chan struct{}

	// Terminate asks the process to exit.
	Terminate() error

	// Kill forcibly stops the process.
	Kill() error
}

// Launcher starts processes.
type Launcher interface {
	Launch(ctx context.Context, binary string, args ...string) (Process, error)
}

// ExecLauncher starts processes with os/exec. Output of the child is
// forwarded to Stdout and Stderr, which default to the supervisor's own.
type ExecLauncher struct {
	// WorkDir is the working directory of the child. Empty inherits ours.
	WorkDir string

	Stdout io.Writer
	Stderr io.Writer
}

// Launch implements Launcher. The process is not bound to ctx; the
// supervisor terminates it explicitly so it can escalate to a kill.
func (l ExecLauncher) Launch(ctx context.Context, binary string, args ...string) (Process, error) {
	cmd := exec.Command(binary, args...)
	cmd.Dir = l.WorkDir
	cmd.Stdout = l.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = l.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.err = err
		p.mu.Unlock()
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu  sync.Mutex
	err error
}

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

func (p *execProcess) Done() <-chan struct{} { return p.done }

func (p *execProcess) Terminate() error { return p.cmd.Process.Signal(syscall.SIGTERM) }

func (p *execProcess) Kill() error { return p.cmd.Process.Kill() }

// Err returns the result of waiting on the process once it has exited.
func (p *execProcess) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}
