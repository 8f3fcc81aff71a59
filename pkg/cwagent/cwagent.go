// Package cwagent builds the amazon-cloudwatch-agent configuration installed on every node.
package cwagent

import (
	"encoding/json"
	"fmt"
)

const (
	ClusterLogGroup       = "opensearchLogGroup/opensearch.log"
	LoggingPluginLogGroup = "opensearchLogGroup/loggingPlugin.log"
	HTTPTraceLogPath      = "/httpTraceLogs/http_trace.log"
	agentLogFile          = "/opt/aws/amazon-cloudwatch-agent/logs/amazon-cloudwatch-agent.log"
)

type Config struct {
	Agent   Agent   `json:"agent"`
	Metrics Metrics `json:"metrics"`
	Logs    Logs    `json:"logs"`
}

type Agent struct {
	MetricsCollectionInterval int    `json:"metrics_collection_interval"`
	Logfile                   string `json:"logfile"`
	OmitHostname              bool   `json:"omit_hostname"`
	Debug                     bool   `json:"debug"`
}

type Metrics struct {
	MetricsCollected MetricsCollected `json:"metrics_collected"`
}

type MetricsCollected struct {
	CPU    Measurement `json:"cpu"`
	Disk   Measurement `json:"disk"`
	DiskIO Measurement `json:"diskio"`
	Mem    Measurement `json:"mem"`
	Net    Measurement `json:"net"`
}

type Measurement struct {
	Measurement []string `json:"measurement"`
}

type Logs struct {
	LogsCollected      LogsCollected `json:"logs_collected"`
	ForceFlushInterval int           `json:"force_flush_interval"`
}

type LogsCollected struct {
	Files Files `json:"files"`
}

type Files struct {
	CollectList []CollectItem `json:"collect_list"`
}

type CollectItem struct {
	FilePath      string `json:"file_path"`
	LogGroupName  string `json:"log_group_name"`
	LogStreamName string `json:"log_stream_name"`
	AutoRemoval   bool   `json:"auto_removal"`
}

// New returns the agent configuration for a node whose engine is unpacked in
// /home/ec2-user/<engineDir> and whose cluster is named clusterName.
// The HTTP trace log is collected when withTraceLog is set.
func New(engineDir string, clusterName string, withTraceLog bool) *Config {
	files := []CollectItem{
		{
			FilePath:      fmt.Sprintf("/home/ec2-user/%s/logs/%s.log", engineDir, clusterName),
			LogGroupName:  ClusterLogGroup,
			LogStreamName: "{instance_id}",
			AutoRemoval:   true,
		},
	}
	if withTraceLog {
		files = append(files, CollectItem{
			FilePath:      HTTPTraceLogPath,
			LogGroupName:  LoggingPluginLogGroup,
			LogStreamName: "{instance_id}",
			AutoRemoval:   true,
		})
	}
	return &Config{
		Agent: Agent{
			MetricsCollectionInterval: 60,
			Logfile:                   agentLogFile,
			OmitHostname:              true,
			Debug:                     false,
		},
		Metrics: Metrics{
			MetricsCollected: MetricsCollected{
				CPU: Measurement{[]string{
					"usage_active", "usage_guest", "usage_guest_nice", "usage_idle", "usage_iowait", "usage_irq", "usage_nice",
					"usage_softirq", "usage_steal", "usage_system", "usage_user", "time_active", "time_iowait", "time_system", "time_user",
				}},
				Disk: Measurement{[]string{
					"free", "total", "used", "used_percent", "inodes_free", "inodes_used", "inodes_total",
				}},
				DiskIO: Measurement{[]string{
					"reads", "writes", "read_bytes", "write_bytes", "read_time", "write_time", "io_time",
				}},
				Mem: Measurement{[]string{
					"active", "available", "available_percent", "buffered", "cached", "free", "inactive", "total", "used", "used_percent",
				}},
				Net: Measurement{[]string{
					"bytes_sent", "bytes_recv", "drop_in", "drop_out", "err_in", "err_out", "packets_sent", "packets_recv",
				}},
			},
		},
		Logs: Logs{
			LogsCollected:      LogsCollected{Files: Files{CollectList: files}},
			ForceFlushInterval: 5,
		},
	}
}

// JSON renders the configuration as the agent expects it on disk.
func (c *Config) JSON() (string, error) {
	out, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}
