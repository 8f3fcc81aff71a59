package cwagent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenSearchAgentConfig(t *testing.T) {
	c := New("opensearch", "stack-123-us-east-1", false)
	out, err := c.JSON()
	require.NoError(t, err)

	doc := map[string]any{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	logs := doc["logs"].(map[string]any)
	require.EqualValues(t, 5, logs["force_flush_interval"])
	list := logs["logs_collected"].(map[string]any)["files"].(map[string]any)["collect_list"].([]any)
	require.Len(t, list, 1)
	item := list[0].(map[string]any)
	require.Equal(t, "/home/ec2-user/opensearch/logs/stack-123-us-east-1.log", item["file_path"])
	require.Equal(t, ClusterLogGroup, item["log_group_name"])
	require.Equal(t, "{instance_id}", item["log_stream_name"])
	require.Equal(t, true, item["auto_removal"])

	agent := doc["agent"].(map[string]any)
	require.EqualValues(t, 60, agent["metrics_collection_interval"])
	require.Equal(t, true, agent["omit_hostname"])
}

func TestElasticsearchCollectsTraceLog(t *testing.T) {
	c := New("elasticsearch", "demo", true)
	require.Len(t, c.Logs.LogsCollected.Files.CollectList, 2)
	trace := c.Logs.LogsCollected.Files.CollectList[1]
	require.Equal(t, HTTPTraceLogPath, trace.FilePath)
	require.Equal(t, LoggingPluginLogGroup, trace.LogGroupName)
	require.Contains(t, c.Metrics.MetricsCollected.Mem.Measurement, "used_percent")
	require.Len(t, c.Metrics.MetricsCollected.CPU.Measurement, 15)
}
