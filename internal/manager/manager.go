package manager

import (
	"context"
	"sync"
	"time"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// containerPrefix namespaces every container the manager owns.
const containerPrefix = "mlil__model"

type deployment struct {
	spec          types.DeploySpec
	containerName string
	containerID   string
	createdAt     time.Time
}

// Manager tracks model deployments keyed by (name, flavor, version).
type Manager struct {
	mu          sync.RWMutex
	deployments map[string]*deployment
	lastErr     string

	runner      Runner
	image       string
	network     string
	trackingURI string
	port        int
	opTimeout   time.Duration

	startTime time.Time

	deploysTotal  uint64
	removalsTotal uint64
}

// ContainerName renders the canonical container name for a model key.
func ContainerName(k types.ModelKey) string {
	return containerPrefix + "__" + k.Name + "__" + k.Flavor + "__" + k.Version
}

// List returns a snapshot of tracked deployments.
func (m *Manager) List() []types.Deployment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Deployment, 0, len(m.deployments))
	for _, d := range m.deployments {
		out = append(out, d.view())
	}
	return out
}

// StatusReport summarizes the manager for GET /status.
func (m *Manager) StatusReport() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	deps := make([]types.Deployment, 0, len(m.deployments))
	for _, d := range m.deployments {
		deps = append(deps, d.view())
	}
	now := time.Now()
	return types.StatusResponse{
		Deployments:    deps,
		DeploysTotal:   m.deploysTotal,
		RemovalsTotal:  m.removalsTotal,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
		LastError:      m.lastErr,
	}
}

// Ready reports whether the container runtime is reachable.
func (m *Manager) Ready(ctx context.Context) bool {
	if m.runner == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return m.runner.Ping(ctx) == nil
}

func (d *deployment) view() types.Deployment {
	return types.Deployment{
		DeploySpec:    d.spec,
		ContainerName: d.containerName,
		ContainerID:   d.containerID,
		CreatedAt:     d.createdAt.Unix(),
	}
}

// lookup returns the deployment for key or a typed not-found error.
// Callers must hold at least a read lock.
func (m *Manager) lookup(key types.ModelKey) (*deployment, error) {
	d, ok := m.deployments[key.String()]
	if !ok {
		return nil, ErrDeploymentNotFound(key.String())
	}
	return d, nil
}

func (m *Manager) setLastErr(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	m.lastErr = err.Error()
	m.mu.Unlock()
}

// opContext bounds a runner operation with the configured timeout.
func (m *Manager) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.opTimeout)
}
