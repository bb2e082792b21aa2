package manager

import (
	"context"
	"errors"

	"github.com/mlinsightlab/mlil/pkg/types"
)

// Remove stops the container backing key and forgets the deployment.
func (m *Manager) Remove(ctx context.Context, key types.ModelKey) error {
	m.mu.RLock()
	d, err := m.lookup(key)
	m.mu.RUnlock()
	if err != nil {
		return err
	}

	stopCtx, cancel := m.opContext(ctx)
	defer cancel()
	if err := m.runner.Stop(stopCtx, d.containerName); err != nil {
		// The container may have exited and auto-removed itself already;
		// still drop it from tracking in that case.
		if !IsDeploymentNotFound(err) {
			m.setLastErr(err)
			return err
		}
	}

	m.mu.Lock()
	delete(m.deployments, key.String())
	m.removalsTotal++
	m.mu.Unlock()
	removalsTotal.Inc()
	return nil
}

// RemoveAll removes every tracked deployment, aggregating failures.
func (m *Manager) RemoveAll(ctx context.Context) error {
	m.mu.RLock()
	keys := make([]types.ModelKey, 0, len(m.deployments))
	for _, d := range m.deployments {
		keys = append(keys, d.spec.ModelKey)
	}
	m.mu.RUnlock()

	var errs []error
	for _, k := range keys {
		if err := m.Remove(ctx, k); err != nil && !IsDeploymentNotFound(err) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
