// Package health queries a running cluster through its load balancer.
package health

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

var (
	ErrConnectionFailed  = errors.New("cluster connection failed")
	ErrHealthcheckFailed = errors.New("cluster healthcheck failed")
)

// Config holds the connection parameters. The demo security configuration
// serves a self-signed certificate, so Insecure skips verification.
type Config struct {
	Addresses  []string
	Username   string
	Password   string
	Insecure   bool
	MaxRetries int
}

// New creates a client for the cluster. It does not contact the cluster.
func New(cfg Config) (*opensearch.Client, error) {
	ocfg := opensearch.Config{
		Addresses:  cfg.Addresses,
		Username:   cfg.Username,
		Password:   cfg.Password,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.Insecure {
		ocfg.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}}
	}
	client, err := opensearch.NewClient(ocfg)
	if err != nil {
		return nil, errors.Join(ErrConnectionFailed, err)
	}
	return client, nil
}

// Healthcheck returns a probe that calls the root endpoint of the cluster.
func Healthcheck(client *opensearch.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		if _, err := Info(ctx, client); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}

type ClusterInfo struct {
	NodeName     string
	ClusterName  string
	Version      string
	Distribution string
}

type ClusterHealth struct {
	ClusterName      string `json:"cluster_name"`
	Status           string `json:"status"`
	TimedOut         bool   `json:"timed_out"`
	Nodes            int    `json:"number_of_nodes"`
	DataNodes        int    `json:"number_of_data_nodes"`
	ActiveShards     int    `json:"active_shards"`
	RelocatingShards int    `json:"relocating_shards"`
	UnassignedShards int    `json:"unassigned_shards"`
}

// Node is one row of the _cat/nodes listing.
type Node struct {
	Name        string `json:"name"`
	IP          string `json:"ip"`
	Roles       string `json:"node.role"`
	Manager     string `json:"master"`
	HeapPercent string `json:"heap.percent"`
}

// IsManager reports whether the node is the elected manager.
func (n Node) IsManager() bool {
	return n.Manager == "*"
}

// decode reads a JSON response body into v, turning error statuses into errors.
func decode(res *opensearchapi.Response, err error, v any) error {
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, string(body))
	}
	return json.NewDecoder(res.Body).Decode(v)
}

func Info(ctx context.Context, client *opensearch.Client) (*ClusterInfo, error) {
	var body struct {
		Name        string `json:"name"`
		ClusterName string `json:"cluster_name"`
		Version     struct {
			Number       string `json:"number"`
			Distribution string `json:"distribution"`
		} `json:"version"`
	}
	res, err := client.Info(client.Info.WithContext(ctx))
	if err := decode(res, err, &body); err != nil {
		return nil, fmt.Errorf("info: %w", err)
	}
	info := &ClusterInfo{
		NodeName:     body.Name,
		ClusterName:  body.ClusterName,
		Version:      body.Version.Number,
		Distribution: body.Version.Distribution,
	}
	if info.Distribution == "" {
		info.Distribution = "elasticsearch"
	}
	return info, nil
}

// Health returns the cluster health. With waitFor set (green, yellow or red) the
// request blocks on the server until that status is reached or timeout passes.
func Health(ctx context.Context, client *opensearch.Client, waitFor string, timeout time.Duration) (*ClusterHealth, error) {
	opts := []func(*opensearchapi.ClusterHealthRequest){client.Cluster.Health.WithContext(ctx)}
	if waitFor != "" {
		opts = append(opts, client.Cluster.Health.WithWaitForStatus(waitFor), client.Cluster.Health.WithTimeout(timeout))
	}
	h := &ClusterHealth{}
	res, err := client.Cluster.Health(opts...)
	if err := decode(res, err, h); err != nil {
		return nil, fmt.Errorf("cluster health: %w", err)
	}
	return h, nil
}

func Nodes(ctx context.Context, client *opensearch.Client) ([]Node, error) {
	nodes := []Node{}
	res, err := client.Cat.Nodes(
		client.Cat.Nodes.WithContext(ctx),
		client.Cat.Nodes.WithFormat("json"),
		client.Cat.Nodes.WithH("name", "ip", "node.role", "master", "heap.percent"),
	)
	if err := decode(res, err, &nodes); err != nil {
		return nil, fmt.Errorf("cat nodes: %w", err)
	}
	return nodes, nil
}

// Report is everything the status command prints.
type Report struct {
	Info   *ClusterInfo
	Health *ClusterHealth
	Nodes  []Node
}

// Check collects info, health and the node list.
func Check(ctx context.Context, client *opensearch.Client, waitFor string, timeout time.Duration) (*Report, error) {
	info, err := Info(ctx, client)
	if err != nil {
		return nil, errors.Join(ErrHealthcheckFailed, err)
	}
	h, err := Health(ctx, client, waitFor, timeout)
	if err != nil {
		return nil, errors.Join(ErrHealthcheckFailed, err)
	}
	if h.TimedOut {
		return nil, fmt.Errorf("%w: status %s did not reach %s within %s", ErrHealthcheckFailed, h.Status, waitFor, timeout)
	}
	nodes, err := Nodes(ctx, client)
	if err != nil {
		return nil, errors.Join(ErrHealthcheckFailed, err)
	}
	return &Report{Info: info, Health: h, Nodes: nodes}, nil
}

// Summary is a one-line description of the report.
func (r *Report) Summary() string {
	return r.Info.ClusterName + " " + r.Info.Distribution + " " + r.Info.Version + " status=" + r.Health.Status +
		" nodes=" + strconv.Itoa(r.Health.Nodes) + " data=" + strconv.Itoa(r.Health.DataNodes)
}
