package clusterconfig

import "errors"

var (
	ErrUnknownRole         = errors.New("unknown node type provided when retrieving cluster config")
	ErrInvalidManagerCount = errors.New("manager node count must not be negative")
	ErrUnknownDistribution = errors.New("distribution was not detected to be an OpenSearch or Elasticsearch OSS distribution")
	ErrInvalidVersion      = errors.New("invalid distribution version")
)
