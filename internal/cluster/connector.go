package cluster

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Connector lazily builds one Client and shares it between concurrent callers.
// A failed attempt is not cached, the next Get tries again.
type Connector struct {
	kubeconfig  string
	kubeContext string
	connect     func(kubeconfig, kubeContext string) (*Client, error)

	mu     sync.RWMutex
	client *Client
	group  singleflight.Group
}

// NewConnector creates a connector for the given kubeconfig path and context.
func NewConnector(kubeconfig, kubeContext string) *Connector {
	return &Connector{
		kubeconfig:  kubeconfig,
		kubeContext: kubeContext,
		connect:     NewFromKubeconfig,
	}
}

// Get returns the shared client, connecting on first use.
func (c *Connector) Get(ctx context.Context) (*Client, error) {
	c.mu.RLock()
	if c.client != nil {
		defer c.mu.RUnlock()
		return c.client, nil
	}
	c.mu.RUnlock()

	ch := c.group.DoChan("connect", func() (interface{}, error) {
		c.mu.RLock()
		existing := c.client
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		cl, err := c.connect(c.kubeconfig, c.kubeContext)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.client = cl
		c.mu.Unlock()
		return cl, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Client), nil
	}
}
