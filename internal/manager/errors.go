package manager

// deploymentNotFoundError signals an unknown deployment key for 404 mapping.
type deploymentNotFoundError struct{ key string }

func (e deploymentNotFoundError) Error() string { return "deployment not found: " + e.key }

// ErrDeploymentNotFound constructs a deploymentNotFoundError.
func ErrDeploymentNotFound(key string) error { return deploymentNotFoundError{key: key} }

// IsDeploymentNotFound reports whether err indicates a missing deployment key.
func IsDeploymentNotFound(err error) bool {
	_, ok := err.(deploymentNotFoundError)
	return ok
}

// deploymentExistsError signals a duplicate deploy for 409 mapping.
type deploymentExistsError struct{ key string }

func (e deploymentExistsError) Error() string { return "deployment already exists: " + e.key }

// ErrDeploymentExists constructs a deploymentExistsError.
func ErrDeploymentExists(key string) error { return deploymentExistsError{key: key} }

// IsDeploymentExists reports whether err indicates a duplicate deployment.
func IsDeploymentExists(err error) bool {
	_, ok := err.(deploymentExistsError)
	return ok
}

// runnerUnavailableError signals an unreachable container runtime (e.g. the
// Docker daemon) so the HTTP layer can return 503 instead of 500.
type runnerUnavailableError struct{ msg string }

func (e runnerUnavailableError) Error() string { return e.msg }

// ErrRunnerUnavailable constructs a runnerUnavailableError.
func ErrRunnerUnavailable(msg string) error { return runnerUnavailableError{msg: msg} }

// IsRunnerUnavailable reports whether err indicates a missing/failed runtime.
func IsRunnerUnavailable(err error) bool {
	_, ok := err.(runnerUnavailableError)
	return ok
}
