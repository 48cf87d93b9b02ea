package harness

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(stdout, stderr string, exitCode int) *ExecutionResult {
	return NewExecutionResult(NewCommand("kubectl", "get", "pods"), stdout, stderr, exitCode, time.Now(), 10*time.Millisecond)
}

func TestAssertSuccess(t *testing.T) {
	tests := []struct {
		name     string
		stdout   string
		stderr   string
		exitCode int
		wantErr  bool
	}{
		{name: "zero exit with error text", stderr: "Error: something bad", exitCode: 0},
		{name: "zero exit empty", exitCode: 0},
		{name: "non-zero exit with success text", stdout: "all good", exitCode: 1, wantErr: true},
		{name: "signal", exitCode: -1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := result(tt.stdout, tt.stderr, tt.exitCode)
			err := r.AssertSuccess()
			if !tt.wantErr {
				assert.NoError(t, err)
				assert.True(t, r.Success())
				return
			}
			require.Error(t, err)
			assert.False(t, r.Success())
			assert.ErrorIs(t, err, ErrCommandFailed)

			var failed *CommandFailedError
			require.True(t, errors.As(err, &failed))
			assert.Equal(t, tt.exitCode, failed.ExitCode)
			assert.Equal(t, tt.stdout, failed.Stdout)
			assert.Contains(t, err.Error(), "kubectl get pods")
		})
	}
}

func TestOutContainsNormalizedMany(t *testing.T) {
	r := result("NAME                        READY\nkube-state-metrics-6c8   1/1\nvm-operator-vm-operator-0   1/1\n", "", 0)

	assert.NoError(t, r.OutContainsNormalizedMany())
	assert.NoError(t, r.OutContainsNormalizedMany("kube-state-metrics", "vm-operator-vm-operator"))
	assert.NoError(t, r.OutContainsNormalizedMany("vm-operator-vm-operator", "kube-state-metrics", "kube-state-metrics"))
	assert.NoError(t, r.OutContainsNormalizedMany("NAME READY"))

	err := r.OutContainsNormalizedMany("kube-state-metrics", "everest-operator-controller-manager", "missing-too")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingOutput)

	var missing *MissingOutputError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "everest-operator-controller-manager", missing.Expected, "first missing entry is reported")
	assert.Equal(t, StreamStdout, missing.Stream)
}

func TestOutContainsNormalizedMany_IgnoresStderr(t *testing.T) {
	r := result("", "percona-xtradb-cluster-operator", 0)
	assert.ErrorIs(t, r.OutContainsNormalizedMany("percona-xtradb-cluster-operator"), ErrMissingOutput)
	assert.NoError(t, r.OutErrContainsNormalizedMany("percona-xtradb-cluster-operator"))
}

func TestOutNotContains(t *testing.T) {
	r := result("percona-xtradb-cluster-operator-6f7c   1/1   Running", "percona-server-mongodb-operator", 0)

	assert.NoError(t, r.OutNotContains())
	assert.NoError(t, r.OutNotContains("percona-server-mongodb-operator", "percona-postgresql-operator"), "stderr is not consulted")

	err := r.OutNotContains("percona-postgresql-operator", "percona-xtradb-cluster-operator")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedOutput)

	var unexpected *UnexpectedOutputError
	require.True(t, errors.As(err, &unexpected))
	assert.Equal(t, "percona-xtradb-cluster-operator", unexpected.Found)
	assert.Equal(t, StreamStdout, unexpected.Stream)
}

func TestOutErrNotContains(t *testing.T) {
	r := result("Error: boom", "warning: deprecated flag", 0)
	assert.NoError(t, r.OutErrNotContains("Error:"))
	assert.ErrorIs(t, r.OutErrNotContains("deprecated   flag"), ErrUnexpectedOutput)
}

func TestContainsComplement(t *testing.T) {
	outputs := []string{"", "  ", "a b c", "percona-xtradb-cluster-operator\n1/1", "A\tB"}
	needles := []string{"", "a", "a  b", "b c", "A B", "percona", "1/1 ", "zzz"}

	for _, out := range outputs {
		for _, needle := range needles {
			r := result(out, out, 0)
			contains := r.OutContainsNormalizedMany(needle) == nil
			notContains := r.OutNotContains(needle) == nil
			assert.NotEqual(t, contains, notContains, "output %q needle %q", out, needle)

			containsErr := r.OutErrContainsNormalizedMany(needle) == nil
			notContainsErr := r.OutErrNotContains(needle) == nil
			assert.NotEqual(t, containsErr, notContainsErr, "stderr %q needle %q", out, needle)
		}
	}
}

func TestResult_ScriptedInstall(t *testing.T) {
	stdout := "Installing Everest...\npercona-xtradb-cluster-operator installed in namespace mysql\n"
	stderr := "2023-11-02T10:00:00Z info percona-xtradb-cluster-operator operator has been installed\n" +
		"2023-11-02T10:00:05Z info everest-operator   operator has been installed\n"
	r := NewExecutionResult(
		NewCommand("everest", "install", "--operator.mongodb=false", "--operator.postgresql=false",
			"--operator.xtradb-cluster=true", "--namespaces=mysql", "--skip-wizard"),
		stdout, stderr, 0, time.Now(), time.Minute)

	require.NoError(t, r.AssertSuccess())
	assert.NoError(t, r.OutErrContainsNormalizedMany(
		"percona-xtradb-cluster-operator operator has been installed",
		"everest-operator operator has been installed",
	))
	assert.NoError(t, r.OutContainsNormalizedMany("percona-xtradb-cluster-operator"))
	assert.NoError(t, r.OutNotContains("percona-server-mongodb-operator", "percona-postgresql-operator"))
}

func TestResult_ScriptedUninstallNamespaces(t *testing.T) {
	stderr := `Error from server (NotFound): namespaces "everest-system" not found
Error from server (NotFound): namespaces "everest-monitoring" not found
Error from server (NotFound): namespaces "everest-olm" not found
Error from server (NotFound): namespaces "everest-all" not found
`
	r := result("", stderr, 1)

	assert.False(t, r.Success())
	assert.NoError(t, r.OutErrContainsNormalizedMany(
		`Error from server (NotFound): namespaces "everest-system" not found`,
		`Error from server (NotFound): namespaces "everest-monitoring" not found`,
		`Error from server (NotFound): namespaces "everest-olm" not found`,
		`Error from server (NotFound): namespaces "everest-all" not found`,
	))
}

func TestResult_RawOutputPreserved(t *testing.T) {
	r := result("a\n\n  b\t", " c ", 0)
	assert.Equal(t, "a\n\n  b\t", r.Stdout())
	assert.Equal(t, "a b", r.NormalizedStdout())
	assert.Equal(t, " c ", r.Stderr())
	assert.Equal(t, "c", r.NormalizedStderr())
	assert.Contains(t, r.String(), "exit 0")
}
