package supervisor

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeProcess is a controllable Process.
type fakeProcess struct {
	pid        int
	done       chan struct{}
	once       sync.Once
	ignoreTerm bool
	terms      atomic.Int32
	kills      atomic.Int32
}

func (p *fakeProcess) Pid() int              { return p.pid }
func (p *fakeProcess) Done() <-chan struct{} { return p.done }
func (p *fakeProcess) exit()                 { p.once.Do(func() { close(p.done) }) }

func (p *fakeProcess) Terminate() error {
	p.terms.Add(1)
	if !p.ignoreTerm {
		p.exit()
	}
	return nil
}

func (p *fakeProcess) Kill() error {
	p.kills.Add(1)
	p.exit()
	return nil
}

type launchCall struct {
	binary string
	args   []string
	at     time.Time
}

// fakeLauncher records launches and hands each new process to the test.
type fakeLauncher struct {
	mu         sync.Mutex
	calls      []launchCall
	failures   int
	ignoreTerm bool
	launched   chan *fakeProcess
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{launched: make(chan *fakeProcess, 32)}
}

func (l *fakeLauncher) Launch(ctx context.Context, binary string, args ...string) (Process, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls = append(l.calls, launchCall{binary: binary, args: args, at: time.Now()})
	if l.failures > 0 {
		l.failures--
		return nil, errors.New("exec: file not found")
	}

	p := &fakeProcess{pid: 1000 + len(l.calls), done: make(chan struct{}), ignoreTerm: l.ignoreTerm}
	l.launched <- p
	return p, nil
}

func (l *fakeLauncher) Calls() []launchCall {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]launchCall(nil), l.calls...)
}

func (l *fakeLauncher) next(t *testing.T) *fakeProcess {
	t.Helper()
	select {
	case p := <-l.launched:
		return p
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for launch")
		return nil
	}
}

func (l *fakeLauncher) expectNoLaunch(t *testing.T, wait time.Duration) {
	t.Helper()
	select {
	case p := <-l.launched:
		t.Fatalf("unexpected launch of pid %d", p.pid)
	case <-time.After(wait):
	}
}

func testConfig() Config {
	return Config{
		Binary:             "bin/frp/frpc",
		ConfigPath:         "frpc.toml",
		TerminationTimeout: 200 * time.Millisecond,
		Cooldown:           50 * time.Millisecond,
	}
}

// startSupervisor runs sup in the background and returns a stop function
// that cancels it and waits for Run to return.
func startSupervisor(t *testing.T, sup *Supervisor) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sup.Run(ctx) }()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			select {
			case err := <-errCh:
				if err != nil {
					t.Errorf("Run returned error: %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Error("Run did not return after cancel")
			}
		})
	}
	t.Cleanup(stop)
	return stop
}

func waitForState(t *testing.T, sup *Supervisor, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sup.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state %s not reached, current %s", want, sup.State())
}

func TestSupervisor_LaunchArgs(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(testConfig(), launcher, WithSampler(nil))
	startSupervisor(t, sup)

	launcher.next(t)
	waitForState(t, sup, StateRunning)

	calls := launcher.Calls()
	if calls[0].binary != "bin/frp/frpc" {
		t.Errorf("expected binary bin/frp/frpc, got %s", calls[0].binary)
	}
	if !reflect.DeepEqual(calls[0].args, []string{"-c", "frpc.toml"}) {
		t.Errorf("expected args [-c frpc.toml], got %v", calls[0].args)
	}

	stats := sup.Stats()
	if stats.PID != 1001 || stats.Launches != 1 || stats.State != StateRunning {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// TestSupervisor_CrashRelaunch checks that an unexpected exit leads to
// exactly one relaunch after the cool-down, with the same arguments.
func TestSupervisor_CrashRelaunch(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(testConfig(), launcher, WithSampler(nil))
	startSupervisor(t, sup)

	first := launcher.next(t)
	first.exit()

	launcher.next(t)
	launcher.expectNoLaunch(t, 150*time.Millisecond)

	calls := launcher.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 launches, got %d", len(calls))
	}
	if gap := calls[1].at.Sub(calls[0].at); gap < 50*time.Millisecond {
		t.Errorf("relaunch after %v, expected at least the cool-down", gap)
	}
	if !reflect.DeepEqual(calls[0].args, calls[1].args) || calls[0].binary != calls[1].binary {
		t.Errorf("relaunch used different command: %+v vs %+v", calls[0], calls[1])
	}
	if first.terms.Load() != 0 {
		t.Error("crashed process should not be signalled")
	}
	if sup.Stats().Crashes != 1 {
		t.Errorf("expected 1 crash, got %d", sup.Stats().Crashes)
	}
}

func TestSupervisor_StopTerminatesGracefully(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(testConfig(), launcher, WithSampler(nil))
	stop := startSupervisor(t, sup)

	proc := launcher.next(t)
	waitForState(t, sup, StateRunning)
	stop()

	if proc.terms.Load() != 1 {
		t.Errorf("expected 1 terminate, got %d", proc.terms.Load())
	}
	if proc.kills.Load() != 0 {
		t.Errorf("expected no kill, got %d", proc.kills.Load())
	}
	if sup.State() != StateIdle {
		t.Errorf("expected idle, got %s", sup.State())
	}
	launcher.expectNoLaunch(t, 100*time.Millisecond)
}

// TestSupervisor_StopEscalatesToKill stops a process that ignores SIGTERM:
// the supervisor must kill it after the termination timeout, reach Idle and
// never relaunch.
func TestSupervisor_StopEscalatesToKill(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.ignoreTerm = true
	sup := New(testConfig(), launcher, WithSampler(nil))
	stop := startSupervisor(t, sup)

	proc := launcher.next(t)
	waitForState(t, sup, StateRunning)

	start := time.Now()
	stop()
	elapsed := time.Since(start)

	if elapsed < 200*time.Millisecond {
		t.Errorf("stop returned after %v, before the termination timeout", elapsed)
	}
	if proc.terms.Load() != 1 || proc.kills.Load() != 1 {
		t.Errorf("expected terminate then kill, got terms=%d kills=%d", proc.terms.Load(), proc.kills.Load())
	}
	if sup.State() != StateIdle {
		t.Errorf("expected idle, got %s", sup.State())
	}
	launcher.expectNoLaunch(t, 150*time.Millisecond)
}

// TestSupervisor_StopDuringRestartTermination stops while a restart is
// waiting for a process that ignores SIGTERM. The pending termination is
// finished within its timeout, then the supervisor goes Idle without a
// relaunch.
func TestSupervisor_StopDuringRestartTermination(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.ignoreTerm = true
	cfg := testConfig()
	sup := New(cfg, launcher, WithSampler(nil))
	stop := startSupervisor(t, sup)

	proc := launcher.next(t)
	waitForState(t, sup, StateRunning)

	sup.Restart()
	waitForState(t, sup, StateTerminating)

	start := time.Now()
	stop()
	elapsed := time.Since(start)

	if elapsed > cfg.TerminationTimeout+100*time.Millisecond {
		t.Errorf("stop took %v, want at most the termination timeout %v", elapsed, cfg.TerminationTimeout)
	}
	if proc.terms.Load() != 1 || proc.kills.Load() != 1 {
		t.Errorf("expected one terminate and one kill, got terms=%d kills=%d", proc.terms.Load(), proc.kills.Load())
	}
	if sup.State() != StateIdle {
		t.Errorf("expected idle, got %s", sup.State())
	}
	launcher.expectNoLaunch(t, 3*cfg.Cooldown)
	if n := len(launcher.Calls()); n != 1 {
		t.Errorf("launches = %d, want 1", n)
	}
}

func TestSupervisor_StopDuringBackoff(t *testing.T) {
	launcher := newFakeLauncher()
	cfg := testConfig()
	cfg.Cooldown = time.Hour
	sup := New(cfg, launcher, WithSampler(nil))
	stop := startSupervisor(t, sup)

	launcher.next(t).exit()
	waitForState(t, sup, StateBackoff)

	start := time.Now()
	stop()
	if time.Since(start) > time.Second {
		t.Error("stop did not interrupt the backoff wait")
	}
	if sup.State() != StateIdle {
		t.Errorf("expected idle, got %s", sup.State())
	}
}

func TestSupervisor_Restart(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(testConfig(), launcher, WithSampler(nil))
	startSupervisor(t, sup)

	first := launcher.next(t)
	waitForState(t, sup, StateRunning)

	sup.Restart()
	second := launcher.next(t)

	if first.terms.Load() != 1 {
		t.Errorf("expected first process terminated once, got %d", first.terms.Load())
	}
	if second.pid == first.pid {
		t.Error("expected a new process")
	}

	calls := launcher.Calls()
	if gap := calls[1].at.Sub(calls[0].at); gap < 50*time.Millisecond {
		t.Errorf("relaunch after %v, expected at least the cool-down", gap)
	}

	waitForState(t, sup, StateRunning)
	stats := sup.Stats()
	if stats.Restarts != 1 || stats.Crashes != 0 || stats.Launches != 2 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

// TestSupervisor_RestartCoalesces issues a burst of restart requests while a
// restart is in progress. They are satisfied by the next launch; a request
// made after that launch still triggers another restart.
func TestSupervisor_RestartCoalesces(t *testing.T) {
	launcher := newFakeLauncher()
	cfg := testConfig()
	cfg.Cooldown = 100 * time.Millisecond
	sup := New(cfg, launcher, WithSampler(nil))
	startSupervisor(t, sup)

	launcher.next(t)
	waitForState(t, sup, StateRunning)

	sup.Restart()
	waitForState(t, sup, StateBackoff)
	for i := 0; i < 5; i++ {
		sup.Restart()
	}

	second := launcher.next(t)
	launcher.expectNoLaunch(t, 250*time.Millisecond)
	if second.terms.Load() != 0 {
		t.Errorf("second process was terminated %d times", second.terms.Load())
	}

	sup.Restart()
	launcher.next(t)
	if second.terms.Load() != 1 {
		t.Errorf("expected second process terminated after a new request, got %d", second.terms.Load())
	}
}

func TestSupervisor_RestartBeforeRunIsDropped(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(testConfig(), launcher, WithSampler(nil))
	sup.Restart()
	sup.Restart()
	startSupervisor(t, sup)

	first := launcher.next(t)
	launcher.expectNoLaunch(t, 150*time.Millisecond)
	if first.terms.Load() != 0 {
		t.Error("restart requested before the first launch should not restart it")
	}
}

func TestSupervisor_LaunchFailure(t *testing.T) {
	launcher := newFakeLauncher()
	launcher.failures = 2

	var mu sync.Mutex
	var states []State
	hook := func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	}

	sup := New(testConfig(), launcher, WithSampler(nil), WithStateHook(hook))
	startSupervisor(t, sup)

	launcher.next(t)
	waitForState(t, sup, StateRunning)

	calls := launcher.Calls()
	if len(calls) != 3 {
		t.Fatalf("expected 3 launch attempts, got %d", len(calls))
	}
	if sup.Stats().Crashes != 2 {
		t.Errorf("expected 2 crashes, got %d", sup.Stats().Crashes)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{
		StateLaunching, StateCrashed, StateBackoff,
		StateLaunching, StateCrashed, StateBackoff,
		StateLaunching, StateRunning,
	}
	if !reflect.DeepEqual(states, want) {
		t.Errorf("unexpected transitions\ngot:  %v\nwant: %v", states, want)
	}
}

func TestSupervisor_RunTwice(t *testing.T) {
	launcher := newFakeLauncher()
	sup := New(testConfig(), launcher, WithSampler(nil))
	startSupervisor(t, sup)
	launcher.next(t)

	if err := sup.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("expected ErrAlreadyRunning, got %v", err)
	}
}

type stubSampler struct{}

func (stubSampler) Sample(ctx context.Context, pid int) (Sample, error) {
	return Sample{CPUPercent: 12.5, RSSBytes: 4096}, nil
}

type recordingRecorder struct {
	mu       sync.Mutex
	states   []string
	launches []bool
	exits    []string
	samples  int
}

func (r *recordingRecorder) SupervisorState(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recordingRecorder) RecordLaunch(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.launches = append(r.launches, ok)
}

func (r *recordingRecorder) RecordExit(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exits = append(r.exits, reason)
}

func (r *recordingRecorder) RecordProcessSample(cpu float64, rss uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.samples++
}

func TestSupervisor_SamplesAndRecords(t *testing.T) {
	launcher := newFakeLauncher()
	rec := &recordingRecorder{}
	cfg := testConfig()
	cfg.StatsInterval = 10 * time.Millisecond

	sup := New(cfg, launcher, WithSampler(stubSampler{}), WithRecorder(rec))
	stop := startSupervisor(t, sup)

	launcher.next(t)
	deadline := time.Now().Add(2 * time.Second)
	for sup.Stats().RSSBytes == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	stats := sup.Stats()
	if stats.CPUPercent != 12.5 || stats.RSSBytes != 4096 {
		t.Errorf("unexpected sample in stats: %+v", stats)
	}
	stop()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.samples == 0 {
		t.Error("expected samples to be recorded")
	}
	if !reflect.DeepEqual(rec.launches, []bool{true}) {
		t.Errorf("unexpected launches %v", rec.launches)
	}
	if !reflect.DeepEqual(rec.exits, []string{ExitStopped}) {
		t.Errorf("unexpected exits %v", rec.exits)
	}
	if rec.states[len(rec.states)-1] != string(StateIdle) {
		t.Errorf("expected final state idle, got %v", rec.states)
	}
}

func TestNewBackOff(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []time.Duration
	}{
		{
			name: "fixed",
			cfg:  Config{Backoff: "fixed", Cooldown: 5 * time.Second, MaxCooldown: time.Minute},
			want: []time.Duration{5 * time.Second, 5 * time.Second, 5 * time.Second},
		},
		{
			name: "exponential capped",
			cfg:  Config{Backoff: "exponential", Cooldown: 5 * time.Second, MaxCooldown: 15 * time.Second},
			want: []time.Duration{5 * time.Second, 10 * time.Second, 15 * time.Second, 15 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBackOff(tt.cfg)
			for i, want := range tt.want {
				if got := b.NextBackOff().Round(time.Millisecond); got != want {
					t.Errorf("step %d: expected %v, got %v", i, want, got)
				}
			}

			b.Reset()
			if got := b.NextBackOff().Round(time.Millisecond); got != tt.want[0] {
				t.Errorf("after reset: expected %v, got %v", tt.want[0], got)
			}
		})
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	if cfg.TerminationTimeout != 10*time.Second {
		t.Errorf("expected 10s termination timeout, got %v", cfg.TerminationTimeout)
	}
	if cfg.Cooldown != 5*time.Second {
		t.Errorf("expected 5s cool-down, got %v", cfg.Cooldown)
	}
	if cfg.Backoff != "fixed" {
		t.Errorf("expected fixed backoff, got %s", cfg.Backoff)
	}
	if cfg.MaxCooldown != time.Minute {
		t.Errorf("expected 1m max cool-down, got %v", cfg.MaxCooldown)
	}
}
