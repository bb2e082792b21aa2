package manager

import "context"

// RunSpec describes a container the Runner should start.
type RunSpec struct {
	Image   string
	Name    string
	Env     []string
	Network string
	// Port exposed by the model server inside the container.
	Port int
	// UseGPU grants the container access to all available GPUs.
	UseGPU bool
}

// Runner abstracts the container runtime. The Docker engine implementation
// lives in runner_docker.go; tests substitute a fake.
type Runner interface {
	// Run starts a detached container and returns its runtime ID.
	Run(ctx context.Context, spec RunSpec) (string, error)
	// Stop stops (and, with auto-remove, deletes) the named container.
	Stop(ctx context.Context, name string) error
	// Status returns the runtime state of the named container.
	Status(ctx context.Context, name string) (string, error)
	// Logs returns combined stdout/stderr of the named container.
	Logs(ctx context.Context, name string) (string, error)
	// Ping checks the runtime is reachable.
	Ping(ctx context.Context) error
}
