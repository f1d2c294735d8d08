// Package client is a programmatic client for the service endpoint,
// used by cabinet emulators and integration tooling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/yumesaki/arcanet"
)

const (
	defaultTimeout = 3 * time.Second
)

type Client struct {
	client    *http.Client
	cache     *cache.Cache
	userAgent string
	server    string
}

// New returns a client for one server base URL, e.g.
// "http://localhost:8000".
func New(server string) *Client {
	httpClient := http.Client{
		Timeout: defaultTimeout,
	}

	c := &Client{
		client:    &httpClient,
		cache:     cache.New(10*time.Minute, 15*time.Minute),
		userAgent: "arcanet-client",
		server:    server,
	}
	httpClient.Transport = c
	return c
}

func (c *Client) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return http.DefaultTransport.RoundTrip(req)
}

type serviceRequest struct {
	Model string        `json:"model"`
	PCBID string        `json:"pcbid"`
	Root  *arcanet.Node `json:"root"`
}

type serviceResponse struct {
	Status int           `json:"status"`
	Root   *arcanet.Node `json:"root"`
}

// Call posts one request tree and returns the reply tree with the
// in-band status code.
func (c *Client) Call(ctx context.Context, model arcanet.Model, pcbid string, root *arcanet.Node) (*arcanet.Node, int, error) {
	payload, err := json.Marshal(serviceRequest{
		Model: model.String(),
		PCBID: pcbid,
		Root:  root,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/service", bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var reply serviceResponse
	err = json.NewDecoder(resp.Body).Decode(&reply)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode response: %v", err)
	}

	return reply.Root, reply.Status, nil
}

// Invoke wraps Call for the common single-module request shape and
// unwraps the single reply child.
func (c *Client) Invoke(ctx context.Context, model arcanet.Model, pcbid, module, method string, body *arcanet.Node) (*arcanet.Node, int, error) {
	if body == nil {
		body = arcanet.Void(module)
	}
	body.SetAttribute("method", method)

	root := arcanet.Void("call")
	root.AddChild(body)

	reply, status, err := c.Call(ctx, model, pcbid, root)
	if err != nil {
		return nil, status, err
	}
	if reply == nil {
		return nil, status, nil
	}
	return reply.Child(module), status, nil
}

type Machine struct {
	PCBID  string `json:"pcbid"`
	Name   string `json:"name"`
	Region int    `json:"region"`
	ShopID int64  `json:"shopId"`
}

// GetMachine looks up a cabinet record, caching the result.
func (c *Client) GetMachine(ctx context.Context, pcbid string) (Machine, error) {
	cacheKey := "machine:" + pcbid
	x, found := c.cache.Get(cacheKey)
	if found {
		return x.(Machine), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.server+"/machines/"+pcbid, nil)
	if err != nil {
		return Machine{}, fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Machine{}, fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Machine{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var machine Machine
	err = json.NewDecoder(resp.Body).Decode(&machine)
	if err != nil {
		return Machine{}, fmt.Errorf("failed to decode machine: %v", err)
	}

	c.cache.Set(cacheKey, machine, cache.DefaultExpiration)

	return machine, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.server+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}
