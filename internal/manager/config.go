package manager

import "time"

// Defaults applied when corresponding Config fields are unset. Image,
// network, tracking URI and port mirror the platform's compose defaults.
const (
	DefaultModelImage   = "ghcr.io/mlinsightlab/mlinsightlab-model-container:main"
	DefaultModelNetwork = "mlinsightlab_model_network"
	DefaultTrackingURI  = "http://mlflow:2244"
	DefaultModelPort    = 8888

	defaultOpTimeout = 60 * time.Second
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	Runner            Runner
	ModelImage        string
	ModelNetwork      string
	MLflowTrackingURI string
	ModelPort         int
	// OpTimeout bounds individual runner operations.
	OpTimeout time.Duration
}

// NewWithConfig constructs a Manager from Config, applying defaults for
// unset fields.
func NewWithConfig(cfg Config) *Manager {
	m := &Manager{
		runner:      cfg.Runner,
		image:       cfg.ModelImage,
		network:     cfg.ModelNetwork,
		trackingURI: cfg.MLflowTrackingURI,
		port:        cfg.ModelPort,
		opTimeout:   cfg.OpTimeout,
		deployments: make(map[string]*deployment),
		startTime:   time.Now(),
	}
	if m.image == "" {
		m.image = DefaultModelImage
	}
	if m.network == "" {
		m.network = DefaultModelNetwork
	}
	if m.trackingURI == "" {
		m.trackingURI = DefaultTrackingURI
	}
	if m.port <= 0 {
		m.port = DefaultModelPort
	}
	if m.opTimeout <= 0 {
		m.opTimeout = defaultOpTimeout
	}
	return m
}
