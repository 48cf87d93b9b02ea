package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"clitest/pkg/logging"
)

// Client reads pods and namespaces. It never mutates the cluster.
type Client struct {
	reader     client.Reader
	restConfig *rest.Config
}

// New wraps an existing reader. restConfig may be nil when the reader is a fake.
func New(reader client.Reader, restConfig *rest.Config) *Client {
	return &Client{reader: reader, restConfig: restConfig}
}

// NewScheme returns a scheme with the built-in Kubernetes types registered.
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	return scheme
}

// LoadRESTConfig resolves a REST config from an explicit kubeconfig path (or the default
// loading rules when empty) and an optional context override.
func LoadRESTConfig(kubeconfig, kubeContext string) (*rest.Config, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{}
	if kubeContext != "" {
		overrides.CurrentContext = kubeContext
	}

	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}
	return cfg, nil
}

// NewFromKubeconfig connects to the cluster selected by kubeconfig and kubeContext.
func NewFromKubeconfig(kubeconfig, kubeContext string) (*Client, error) {
	cfg, err := LoadRESTConfig(kubeconfig, kubeContext)
	if err != nil {
		return nil, err
	}

	c, err := client.New(cfg, client.Options{Scheme: NewScheme()})
	if err != nil {
		return nil, fmt.Errorf("failed to create Kubernetes client: %w", err)
	}

	logging.Debug("Cluster", "Connected to %s", cfg.Host)
	return New(c, cfg), nil
}

// RESTConfig returns the config the client was built from, or nil.
func (c *Client) RESTConfig() *rest.Config {
	return c.restConfig
}

// PodNames lists the names of all pods in namespace, sorted.
func (c *Client) PodNames(ctx context.Context, namespace string) ([]string, error) {
	pods, err := c.listPods(ctx, namespace)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pods))
	for _, p := range pods {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names, nil
}

// NamespaceExists reports whether namespace exists. NotFound is not an error.
func (c *Client) NamespaceExists(ctx context.Context, name string) (bool, error) {
	var ns corev1.Namespace
	err := c.reader.Get(ctx, client.ObjectKey{Name: name}, &ns)
	if err == nil {
		return true, nil
	}
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to get namespace %s: %w", name, err)
}

// PodsPresent is met when every fragment is a substring of at least one pod name in namespace.
func (c *Client) PodsPresent(namespace string, fragments ...string) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		pods, err := c.listPods(ctx, namespace)
		if err != nil {
			return false, err
		}
		for _, f := range fragments {
			if len(matching(pods, f)) == 0 {
				return false, fmt.Errorf("no pod matching %q in namespace %s", f, namespace)
			}
		}
		return true, nil
	}
}

// PodsReady is PodsPresent with the extra requirement that every matching pod is Ready.
func (c *Client) PodsReady(namespace string, fragments ...string) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		pods, err := c.listPods(ctx, namespace)
		if err != nil {
			return false, err
		}
		for _, f := range fragments {
			matched := matching(pods, f)
			if len(matched) == 0 {
				return false, fmt.Errorf("no pod matching %q in namespace %s", f, namespace)
			}
			for _, p := range matched {
				if !IsPodReady(p) {
					return false, fmt.Errorf("pod %s/%s is not ready (phase %s)", namespace, p.Name, p.Status.Phase)
				}
			}
		}
		return true, nil
	}
}

// NamespacesGone is met when none of the namespaces exist any more.
func (c *Client) NamespacesGone(names ...string) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		var remaining []string
		for _, name := range names {
			exists, err := c.NamespaceExists(ctx, name)
			if err != nil {
				return false, err
			}
			if exists {
				remaining = append(remaining, name)
			}
		}
		if len(remaining) > 0 {
			return false, fmt.Errorf("namespaces still present: %s", strings.Join(remaining, ", "))
		}
		return true, nil
	}
}

// IsPodReady reports whether the pod's Ready condition is true.
func IsPodReady(pod corev1.Pod) bool {
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady {
			return cond.Status == corev1.ConditionTrue
		}
	}
	return false
}

func (c *Client) listPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	var list corev1.PodList
	if err := c.reader.List(ctx, &list, client.InNamespace(namespace)); err != nil {
		return nil, fmt.Errorf("failed to list pods in namespace %s: %w", namespace, err)
	}
	return list.Items, nil
}

func matching(pods []corev1.Pod, fragment string) []corev1.Pod {
	var out []corev1.Pod
	for _, p := range pods {
		if strings.Contains(p.Name, fragment) {
			out = append(out, p)
		}
	}
	return out
}
