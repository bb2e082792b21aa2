package manager

import (
	"context"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// Status returns the container runtime state for key.
func (m *Manager) Status(ctx context.Context, key types.ModelKey) (string, error) {
	m.mu.RLock()
	d, err := m.lookup(key)
	m.mu.RUnlock()
	if err != nil {
		return "", err
	}
	opCtx, cancel := m.opContext(ctx)
	defer cancel()
	state, err := m.runner.Status(opCtx, d.containerName)
	if err != nil {
		if IsDeploymentNotFound(err) {
			// Auto-removed after exit; report the terminal state.
			return string(types.StateExited), nil
		}
		m.setLastErr(err)
		return "", err
	}
	return state, nil
}

// Logs returns combined stdout/stderr of the container backing key.
func (m *Manager) Logs(ctx context.Context, key types.ModelKey) (string, error) {
	m.mu.RLock()
	d, err := m.lookup(key)
	m.mu.RUnlock()
	if err != nil {
		return "", err
	}
	opCtx, cancel := m.opContext(ctx)
	defer cancel()
	logs, err := m.runner.Logs(opCtx, d.containerName)
	if err != nil {
		m.setLastErr(err)
		return "", err
	}
	return logs, nil
}
