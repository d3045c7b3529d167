// Package supervisor keeps a fixed pool of worker processes alive.
//
// The supervisor owns the listening socket and every worker handle; it
// never serves requests itself. Workers inherit the socket as an extra
// file descriptor, so all of them accept on the same port. Any worker
// exit, clean or not, is answered by an immediate respawn for as long as
// the supervisor runs.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// EnvWorkerSlot marks a process as a worker and carries its slot index.
const EnvWorkerSlot = "MONETA_WORKER_SLOT"

// ListenerFD is the file descriptor number at which workers inherit the
// shared listening socket (stdin/stdout/stderr occupy 0-2).
const ListenerFD = 3

// State tracks a worker slot through its lifecycle. A slot has no
// terminal state while the supervisor is alive: Exited always transitions
// back to Starting.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateExited
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Process is a handle to a live worker.
type Process interface {
	PID() int
	// Wait blocks until the process exits and reports how.
	Wait() error
	Kill() error
}

// SpawnFunc starts the worker for a slot. Injected so tests can
// substitute fake processes for real forks.
type SpawnFunc func(slot int) (Process, error)

// SlotInfo is a point-in-time view of one worker slot.
type SlotInfo struct {
	Slot     int
	State    State
	PID      int
	Restarts int
	LastExit string
}

type slot struct {
	id int

	mu       sync.Mutex
	state    State
	pid      int
	restarts int
	lastExit string
}

func (s *slot) set(state State, pid int) {
	s.mu.Lock()
	s.state = state
	s.pid = pid
	s.mu.Unlock()
}

func (s *slot) recordExit(reason string) {
	s.mu.Lock()
	s.state = StateExited
	s.lastExit = reason
	s.restarts++
	s.mu.Unlock()
}

func (s *slot) info() SlotInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SlotInfo{Slot: s.id, State: s.state, PID: s.pid, Restarts: s.restarts, LastExit: s.lastExit}
}

// Supervisor owns a fixed-size table of worker slots. All mutable
// supervision state lives here, never in package globals.
type Supervisor struct {
	spawn SpawnFunc
	slots []*slot
}

func New(workerCount int, spawn SpawnFunc) *Supervisor {
	slots := make([]*slot, workerCount)
	for i := range slots {
		slots[i] = &slot{id: i, state: StateStarting}
	}
	return &Supervisor{spawn: spawn, slots: slots}
}

// Run starts one worker per slot and supervises them until ctx is
// cancelled. It blocks; on cancellation every live worker is killed and
// reaped before Run returns.
func (s *Supervisor) Run(ctx context.Context) error {
	log.Printf("Supervisor process %d is running with %d workers", os.Getpid(), len(s.slots))

	var wg sync.WaitGroup
	for _, sl := range s.slots {
		wg.Add(1)
		go func(sl *slot) {
			defer wg.Done()
			s.superviseSlot(ctx, sl)
		}(sl)
	}
	wg.Wait()

	log.Println("Supervisor stopped")
	return nil
}

// superviseSlot drives one slot through Starting → Running → Exited →
// Starting until the context ends. Restart is unconditional and
// immediate: no backoff, no crash-loop breaker.
func (s *Supervisor) superviseSlot(ctx context.Context, sl *slot) {
	for {
		if ctx.Err() != nil {
			return
		}

		sl.set(StateStarting, 0)
		proc, err := s.spawn(sl.id)
		if err != nil {
			// Could not even start the process (fd limits, exec failure).
			// Distinct from a worker crash; pause briefly so a persistent
			// spawn failure does not spin the supervisor.
			log.Printf("Failed to start worker for slot %d: %v", sl.id, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
				continue
			}
		}

		sl.set(StateRunning, proc.PID())
		log.Printf("Worker process %d is running (slot %d)", proc.PID(), sl.id)

		exited := make(chan error, 1)
		go func() { exited <- proc.Wait() }()

		select {
		case <-ctx.Done():
			proc.Kill()
			<-exited
			sl.set(StateExited, proc.PID())
			return

		case err := <-exited:
			reason := exitReason(err)
			sl.recordExit(reason)
			log.Printf("Worker process %d died. %s", proc.PID(), reason)
			log.Println("Restarting a new worker...")
		}
	}
}

// Snapshot returns the current view of every slot.
func (s *Supervisor) Snapshot() []SlotInfo {
	infos := make([]SlotInfo, len(s.slots))
	for i, sl := range s.slots {
		infos[i] = sl.info()
	}
	return infos
}

// exitReason renders a Wait error as "Code: N, Signal: S".
func exitReason(err error) string {
	if err == nil {
		return "Code: 0, Signal: none"
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return fmt.Sprintf("Code: %d, Signal: %s", exitErr.ExitCode(), ws.Signal())
			}
			return fmt.Sprintf("Code: %d, Signal: none", ws.ExitStatus())
		}
		return fmt.Sprintf("Code: %d, Signal: none", exitErr.ExitCode())
	}
	return fmt.Sprintf("Wait error: %v", err)
}

// ExecSpawner returns the production SpawnFunc: it re-executes the
// current binary with the worker slot marked in the environment and the
// shared listener passed as fd 3.
func ExecSpawner(listener *os.File) SpawnFunc {
	return func(slotID int) (Process, error) {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve executable: %w", err)
		}

		cmd := exec.Command(exe)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		cmd.Env = append(os.Environ(), fmt.Sprintf("%s=%d", EnvWorkerSlot, slotID))
		cmd.ExtraFiles = []*os.File{listener}

		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start worker: %w", err)
		}
		return &execProcess{cmd: cmd}, nil
	}
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) PID() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Kill() error {
	// SIGTERM first so the worker can shut its server down; the reap
	// happens in Wait either way.
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		return p.cmd.Process.Kill()
	}
	return nil
}
