// Package cluster provides a read-only, typed view of the Kubernetes cluster under test.
//
// Tests mostly assert on kubectl output, but waits for eventually-consistent state are
// cheaper and more precise through the API: PodsPresent, PodsReady and NamespacesGone build
// predicates for the harness poller.
package cluster
