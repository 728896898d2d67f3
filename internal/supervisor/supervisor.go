package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pgstart/pgstart/pkg/logging"
	"github.com/pgstart/pgstart/pkg/retry"
)

// StartTrigger controls when a registered task is launched
type StartTrigger int

const (
	// StartAfterRecovery launches the task once the instance accepts
	// connections and has finished WAL replay
	StartAfterRecovery StartTrigger = iota
	// StartImmediately launches the task without probing readiness
	StartImmediately
)

// RestartPolicy controls what happens after a task finishes
type RestartPolicy int

const (
	// RestartNever runs the task exactly once per supervisor run,
	// regardless of outcome
	RestartNever RestartPolicy = iota
)

var (
	ErrNoEntryPoint   = errors.New("task descriptor has no entry point")
	ErrNoName         = errors.New("task descriptor has no name")
	ErrAlreadyRunning = errors.New("supervisor already running")
)

// Descriptor registers a background task with the supervisor
type Descriptor struct {
	Name          string
	StartTrigger  StartTrigger
	RestartPolicy RestartPolicy
	Main          func(ctx context.Context) error
}

// ReadinessProbe reports whether the target instance is ready for tasks
// that start after recovery
type ReadinessProbe interface {
	Ping(ctx context.Context) error
	InRecovery(ctx context.Context) (bool, error)
}

// Supervisor launches registered tasks once their start trigger is
// satisfied. Registration and execution are strictly sequential phases:
// Register everything first, then Run.
type Supervisor struct {
	log   *logging.Logger
	probe ReadinessProbe
	retry retry.Config

	mu      sync.Mutex
	tasks   []Descriptor
	running bool
}

// New creates a supervisor. The probe is only consulted for tasks with
// StartAfterRecovery.
func New(probe ReadinessProbe, retryCfg retry.Config, log *logging.Logger) *Supervisor {
	return &Supervisor{
		log:   log,
		probe: probe,
		retry: retryCfg,
	}
}

// Register adds a task descriptor. Must be called before Run.
func (s *Supervisor) Register(d Descriptor) error {
	if d.Name == "" {
		return ErrNoName
	}
	if d.Main == nil {
		return ErrNoEntryPoint
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	s.tasks = append(s.tasks, d)

	s.log.Info(fmt.Sprintf("%s registered", d.Name))
	return nil
}

// Run launches each registered task exactly once, in registration order.
// Tasks with StartAfterRecovery wait for the readiness probe first. The
// first task error stops the run and is returned; finished tasks are never
// restarted.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	tasks := append([]Descriptor{}, s.tasks...)
	s.mu.Unlock()

	for _, task := range tasks {
		if task.StartTrigger == StartAfterRecovery {
			if err := s.waitReady(ctx); err != nil {
				return fmt.Errorf("%s: instance never became ready: %w", task.Name, err)
			}
		}

		s.log.Info(fmt.Sprintf("%s starting", task.Name))
		if err := task.Main(ctx); err != nil {
			return fmt.Errorf("%s: %w", task.Name, err)
		}
		s.log.Info(fmt.Sprintf("%s finished", task.Name))
	}

	return nil
}

// waitReady blocks until the instance accepts connections and has left
// recovery, with exponential backoff
func (s *Supervisor) waitReady(ctx context.Context) error {
	return retry.Do(ctx, s.retry, func() error {
		if err := s.probe.Ping(ctx); err != nil {
			return err
		}

		inRecovery, err := s.probe.InRecovery(ctx)
		if err != nil {
			return err
		}
		if inRecovery {
			return errors.New("instance is still in recovery")
		}

		return nil
	})
}
