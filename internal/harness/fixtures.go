package harness

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"clitest/internal/cluster"
	"clitest/internal/config"
	"clitest/internal/everest"
)

// Fixtures is the dependency bundle handed to one scenario. Bundles share nothing mutable, so
// scenarios holding different bundles may run in parallel.
type Fixtures struct {
	Config config.Config
	CLI    *CLIExecutor
	Poller *Poller
	Steps  *StepRecorder

	connector  *cluster.Connector
	everest    *everest.Client
	httpClient *http.Client
}

// FixtureOption customizes NewFixtures.
type FixtureOption func(*fixtureOptions)

type fixtureOptions struct {
	runner     ProcessRunner
	tee        io.Writer
	listener   StepListener
	connector  *cluster.Connector
	everest    *everest.Client
	httpClient *http.Client
}

// WithRunner replaces the process runner, typically with a scripted fake in tests.
func WithRunner(runner ProcessRunner) FixtureOption {
	return func(o *fixtureOptions) { o.runner = runner }
}

// WithOutput streams the output of every command to w as it is produced.
func WithOutput(w io.Writer) FixtureOption {
	return func(o *fixtureOptions) { o.tee = w }
}

// WithStepListener registers a listener on the step recorder.
func WithStepListener(listener StepListener) FixtureOption {
	return func(o *fixtureOptions) { o.listener = listener }
}

// WithClusterConnector shares one lazily connected cluster client between bundles.
func WithClusterConnector(connector *cluster.Connector) FixtureOption {
	return func(o *fixtureOptions) { o.connector = connector }
}

// WithEverestClient uses a prepared API client instead of deriving one from configuration.
func WithEverestClient(client *everest.Client) FixtureOption {
	return func(o *fixtureOptions) { o.everest = client }
}

// WithHTTPClient sets the HTTP client used when the API is reached directly by URL.
func WithHTTPClient(client *http.Client) FixtureOption {
	return func(o *fixtureOptions) { o.httpClient = client }
}

// NewFixtures builds a fresh bundle from cfg. Nothing connects to the cluster until Cluster or
// Everest is called.
func NewFixtures(cfg config.Config, opts ...FixtureOption) *Fixtures {
	var o fixtureOptions
	for _, opt := range opts {
		opt(&o)
	}

	runner := o.runner
	if runner == nil {
		runner = &ExecRunner{Tee: o.tee}
	}
	connector := o.connector
	if connector == nil {
		connector = cluster.NewConnector(cfg.Kubeconfig, cfg.KubeContext)
	}

	return &Fixtures{
		Config:     cfg,
		CLI:        NewCLIExecutor(runner, ExecutorOptionsFromConfig(cfg)),
		Poller:     NewPoller(cfg.PollInterval, cfg.PollTimeout),
		Steps:      NewStepRecorder(o.listener),
		connector:  connector,
		everest:    o.everest,
		httpClient: o.httpClient,
	}
}

// Cluster returns the cluster handle, connecting on first use.
func (f *Fixtures) Cluster(ctx context.Context) (*cluster.Client, error) {
	c, err := f.connector.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("cluster unavailable: %w", err)
	}
	return c, nil
}

// Everest returns the API client: direct when an API URL is configured, otherwise proxied
// through the Kubernetes API server to the everest service.
func (f *Fixtures) Everest(ctx context.Context) (*everest.Client, error) {
	if f.everest != nil {
		return f.everest, nil
	}
	if f.Config.EverestURL != "" {
		f.everest = everest.New(f.Config.EverestURL, f.httpClient)
		return f.everest, nil
	}

	c, err := f.Cluster(ctx)
	if err != nil {
		return nil, err
	}
	if c.RESTConfig() == nil {
		return nil, fmt.Errorf("cluster handle has no REST config to proxy the Everest API through")
	}
	client, err := everest.NewProxied(c.RESTConfig(), f.Config.EverestNamespace)
	if err != nil {
		return nil, err
	}
	f.everest = client
	return f.everest, nil
}

// WaitUntil is shorthand for f.Poller.WaitUntil.
func (f *Fixtures) WaitUntil(ctx context.Context, spec PollSpec, pred Predicate) error {
	return f.Poller.WaitUntil(ctx, spec, pred)
}

// Step is shorthand for f.Steps.Step.
func (f *Fixtures) Step(name string, body func() error) error {
	return f.Steps.Step(name, body)
}
