//go:build e2e

// Package e2e drives a real everest binary against a live cluster. Run with
//
//	go test -tags e2e ./tests/e2e/...
//
// The tests run in file order: the two install flows expect a cluster to be reachable, and
// the uninstall flow expects everest to be installed by them. Configuration is read the same
// way the clitest command reads it, so CLITEST_KUBE_CONTEXT, CLITEST_EVEREST_BIN and a
// clitest.yaml all apply.
package e2e

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clitest/internal/config"
	"clitest/internal/harness"
	"clitest/pkg/logging"
)

const (
	operatorMySQL    = "percona-xtradb-cluster-operator"
	operatorMongoDB  = "percona-server-mongodb-operator"
	operatorPostgres = "percona-postgresql-operator"
	everestOperator  = "everest-operator-controller-manager"
)

var (
	allOperators      = []string{operatorMySQL, operatorMongoDB, operatorPostgres}
	everestNamespaces = []string{"everest-system", "everest-monitoring", "everest-olm", "everest-all"}
)

func newFixtures(t *testing.T) *harness.Fixtures {
	t.Helper()

	logging.InitForCLI(logging.LevelInfo, os.Stderr)
	cfg, err := config.Load(config.NewViper(""))
	require.NoError(t, err)
	return harness.NewFixtures(cfg, harness.WithOutput(testWriter{t}))
}

// testWriter streams command output into the test log.
type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func podsSpec(namespace string) harness.PollSpec {
	return harness.PollSpec{
		Description:   "pods in " + namespace,
		Interval:      2 * time.Second,
		Timeout:       5 * time.Minute,
		BackoffFactor: 1.5,
		MaxInterval:   15 * time.Second,
	}
}

func except(all []string, operator string) []string {
	var out []string
	for _, o := range all {
		if o != operator {
			out = append(out, o)
		}
	}
	return out
}

// requireClusterAvailable is the precondition of both install flows.
func requireClusterAvailable(ctx context.Context, t *testing.T, f *harness.Fixtures) {
	t.Helper()
	out, err := f.CLI.Exec(ctx, "kubectl get nodes")
	require.NoError(t, err)
	require.NoError(t, out.AssertSuccess())
}

// waitForPods polls kubectl until the namespace lists every wanted pod and none of the
// unwanted ones.
func waitForPods(ctx context.Context, f *harness.Fixtures, namespace string, want, unwanted []string) error {
	line := "kubectl get pods --namespace=" + namespace
	return f.WaitUntil(ctx, podsSpec(namespace), func(ctx context.Context) (bool, error) {
		out, err := f.CLI.Exec(ctx, line)
		if err != nil {
			return false, err
		}
		if err := out.AssertSuccess(); err != nil {
			return false, err
		}
		if err := out.OutContainsNormalizedMany(want...); err != nil {
			return false, err
		}
		if err := out.OutNotContains(unwanted...); err != nil {
			return false, err
		}
		return true, nil
	})
}

func verifyEverestPods(ctx context.Context, f *harness.Fixtures) error {
	if err := f.Step("everest-system", func() error {
		return waitForPods(ctx, f, "everest-system", []string{everestOperator}, nil)
	}); err != nil {
		return err
	}
	return f.Step("everest-monitoring", func() error {
		return waitForPods(ctx, f, "everest-monitoring", []string{"kube-state-metrics", "vm-operator-vm-operator"}, nil)
	})
}

func TestInstallAllOperatorsInMultipleNamespaces(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t)
	requireClusterAvailable(ctx, t, f)

	err := f.Step("run everest install command", func() error {
		out, err := f.CLI.EverestExecSkipWizard(ctx,
			"install --operator.mongodb=true --operator.postgresql=true --operator.xtradb-cluster=true --namespaces=namespace1,namespace2")
		if err != nil {
			return err
		}
		return out.AssertSuccess()
	})
	require.NoError(t, err)

	err = f.Step("verify installed operators in k8s", func() error {
		if err := verifyEverestPods(ctx, f); err != nil {
			return err
		}
		for _, ns := range []string{"namespace1", "namespace2"} {
			if err := f.Step(ns, func() error {
				return waitForPods(ctx, f, ns, allOperators, nil)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestInstallDifferentOperatorsInMultipleNamespaces(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t)
	requireClusterAvailable(ctx, t, f)

	installs := []struct {
		namespace string
		operator  string
		flags     string
	}{
		{"mysql", operatorMySQL, "--operator.mongodb=false --operator.postgresql=false --operator.xtradb-cluster=true"},
		{"mongodb", operatorMongoDB, "--operator.mongodb=true --operator.postgresql=false --operator.xtradb-cluster=false"},
		{"postgres", operatorPostgres, "--operator.mongodb=false --operator.postgresql=true --operator.xtradb-cluster=false"},
	}

	err := f.Step("run everest install command", func() error {
		for _, in := range installs {
			if err := f.Step("install "+in.namespace, func() error {
				out, err := f.CLI.EverestExecSkipWizard(ctx, fmt.Sprintf("install %s --namespaces=%s", in.flags, in.namespace))
				if err != nil {
					return err
				}
				if err := out.AssertSuccess(); err != nil {
					return err
				}
				if err := out.OutErrContainsNormalizedMany(
					in.operator+" operator has been installed",
					"everest-operator operator has been installed",
				); err != nil {
					return err
				}
				if err := out.OutContainsNormalizedMany(in.operator); err != nil {
					return err
				}
				return out.OutNotContains(except(allOperators, in.operator)...)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = f.Step("verify installed operators in k8s", func() error {
		if err := verifyEverestPods(ctx, f); err != nil {
			return err
		}
		for _, in := range installs {
			if err := f.Step(in.namespace, func() error {
				return waitForPods(ctx, f, in.namespace, []string{in.operator}, except(allOperators, in.operator))
			}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	err = f.Step("operator pods ready", func() error {
		c, err := f.Cluster(ctx)
		if err != nil {
			return err
		}
		for _, in := range installs {
			if err := f.WaitUntil(ctx, podsSpec(in.namespace), c.PodsReady(in.namespace, in.operator)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestUninstallEverestAndAllNamespaces(t *testing.T) {
	ctx := context.Background()
	f := newFixtures(t)

	// Everest must be installed.
	out, err := f.CLI.Exec(ctx, "kubectl get pods --namespace=everest-system")
	require.NoError(t, err)
	require.NoError(t, out.AssertSuccess())
	require.NoError(t, out.OutContainsNormalizedMany(everestOperator))

	err = f.Step("run everest uninstall command", func() error {
		out, err := f.CLI.EverestExec(ctx, "uninstall --assume-yes")
		if err != nil {
			return err
		}
		if err := out.AssertSuccess(); err != nil {
			return err
		}

		notFound := make([]string, 0, len(everestNamespaces))
		for _, ns := range everestNamespaces {
			notFound = append(notFound, fmt.Sprintf("Error from server (NotFound): namespaces %q not found", ns))
		}
		return f.WaitUntil(ctx, harness.PollSpec{Description: "everest namespaces deleted", Interval: 5 * time.Second},
			harness.CommandStderrContains(f.CLI, "kubectl get ns "+strings.Join(everestNamespaces, " "), notFound...))
	})
	require.NoError(t, err)

	c, err := f.Cluster(ctx)
	require.NoError(t, err)
	require.NoError(t, f.WaitUntil(ctx, harness.PollSpec{Description: "namespaces gone"}, c.NamespacesGone(everestNamespaces...)))
}
