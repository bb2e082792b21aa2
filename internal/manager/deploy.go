package manager

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// Deploy starts a model serving container for spec. The key must not already
// be deployed. The container resolves the model from the MLflow tracking
// server via its environment.
func (m *Manager) Deploy(ctx context.Context, spec types.DeploySpec) (types.Deployment, error) {
	if err := spec.Validate(); err != nil {
		return types.Deployment{}, err
	}
	if spec.ModelURI == "" {
		return types.Deployment{}, fmt.Errorf("model_uri is required")
	}

	key := spec.ModelKey.String()
	name := ContainerName(spec.ModelKey)

	// Reserve the key under lock so concurrent deploys of the same model
	// conflict here instead of at the container runtime.
	m.mu.Lock()
	if _, exists := m.deployments[key]; exists {
		m.mu.Unlock()
		return types.Deployment{}, ErrDeploymentExists(key)
	}
	d := &deployment{spec: spec, containerName: name, createdAt: time.Now()}
	m.deployments[key] = d
	m.mu.Unlock()

	runCtx, cancel := m.opContext(ctx)
	defer cancel()
	id, err := m.runner.Run(runCtx, RunSpec{
		Image: m.image,
		Name:  name,
		Env: []string{
			"MODEL_URI=" + spec.ModelURI,
			"MODEL_FLAVOR=" + spec.Flavor,
			"MLFLOW_TRACKING_URI=" + m.trackingURI,
			"MODEL_PORT=" + strconv.Itoa(m.port),
		},
		Network: m.network,
		Port:    m.port,
		UseGPU:  spec.UseGPU,
	})
	if err != nil {
		m.mu.Lock()
		delete(m.deployments, key)
		m.mu.Unlock()
		m.setLastErr(err)
		deployFailuresTotal.Inc()
		return types.Deployment{}, err
	}

	m.mu.Lock()
	d.containerID = id
	m.deploysTotal++
	out := d.view()
	m.mu.Unlock()
	deploysTotal.Inc()
	return out, nil
}

// Endpoint returns the in-network base URL of a deployed model server.
func (m *Manager) Endpoint(key types.ModelKey) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, err := m.lookup(key)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("http://%s:%d", d.containerName, m.port), nil
}
