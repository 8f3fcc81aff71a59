package clusterconfig

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func parse(t *testing.T, doc string) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, yaml.Unmarshal([]byte(doc), &out))
	return out
}

func generators() map[string]Generator {
	return map[string]Generator{
		"quorum": NewQuorum(),
		"voting": NewVoting(),
	}
}

func TestSingleNodeExample(t *testing.T) {
	for name, g := range generators() {
		t.Run(name, func(t *testing.T) {
			conf, err := g.GetConfig("demo", true, "stack1", 3)
			require.NoError(t, err)
			require.Contains(t, conf, "cluster.name: demo\n")
			require.Contains(t, conf, "discovery.type: single-node\n")
			require.Contains(t, conf, "http.port: 9200\n")
			require.NotContains(t, conf, "node.")
			require.Equal(t, map[string]any{
				"cluster.name":   "demo",
				"network.host":   0,
				"http.port":      9200,
				"discovery.type": "single-node",
			}, parse(t, conf))
		})
	}
}

func TestQuorumManagerExample(t *testing.T) {
	conf, err := NewQuorum().GetConfig("demo", false, "stack1", 3, WithRoleName("manager"))
	require.NoError(t, err)
	require.Contains(t, conf, "discovery.zen.minimum_master_nodes: 2\n")
	require.Contains(t, conf, "node.master: true\n")
	require.Contains(t, conf, "node.data: false\n")
	require.Contains(t, conf, "node.ingest: false\n")
	require.Contains(t, conf, "discovery.zen.hosts_provider: ec2\n")
}

func TestMinimumMasterNodes(t *testing.T) {
	for n := 0; n <= 64; n++ {
		require.Equal(t, n/2+1, MinimumMasterNodes(n))
		conf, err := NewQuorum().GetConfig("demo", false, "stack1", n)
		require.NoError(t, err)
		require.Equal(t, n/2+1, parse(t, conf)["discovery.zen.minimum_master_nodes"], "managers=%d", n)
	}
	// even counts round down before adding one
	require.Equal(t, 3, MinimumMasterNodes(4))
	require.Equal(t, 1, MinimumMasterNodes(0))
}

func TestNegativeManagerCount(t *testing.T) {
	for name, g := range generators() {
		t.Run(name, func(t *testing.T) {
			_, err := g.GetConfig("demo", false, "stack1", -1)
			require.ErrorIs(t, err, ErrInvalidManagerCount)
		})
	}
}

func TestUnknownRoleFails(t *testing.T) {
	for name, g := range generators() {
		t.Run(name, func(t *testing.T) {
			for _, single := range []bool{true, false} {
				conf, err := g.GetConfig("demo", single, "stack1", 3, WithRoleName("coordinator"))
				require.ErrorIs(t, err, ErrUnknownRole)
				require.Empty(t, conf)
				conf, err = g.GetConfig("demo", single, "stack1", 3, WithRole(Role(42)))
				require.ErrorIs(t, err, ErrUnknownRole)
				require.Empty(t, conf)
			}
		})
	}
}

func TestSingleNodeHasNoDiscoveryKeys(t *testing.T) {
	for name, g := range generators() {
		t.Run(name, func(t *testing.T) {
			for _, role := range Roles() {
				conf, err := g.GetConfig("demo", true, "stack1", 3, WithRole(role))
				require.NoError(t, err)
				require.NotContains(t, conf, "minimum_master_nodes")
				require.NotContains(t, conf, "hosts_provider")
				require.NotContains(t, conf, "seed_providers")
				require.NotContains(t, conf, "discovery.ec2.tag.Name")
			}
		})
	}
}

func TestMultiNodeTagFilter(t *testing.T) {
	for name, g := range generators() {
		t.Run(name, func(t *testing.T) {
			for _, role := range Roles() {
				conf, err := g.GetConfig("demo", false, "my-stack", 5, WithRole(role))
				require.NoError(t, err)
				require.Equal(t, "my-stack/seedNodeAsg,my-stack/managerNodeAsg", parse(t, conf)["discovery.ec2.tag.Name"])
			}
		})
	}
}

func TestVotingBase(t *testing.T) {
	conf, err := NewVoting().GetConfig("demo", false, "stack1", 3)
	require.NoError(t, err)
	doc := parse(t, conf)
	require.Equal(t, []any{"seed"}, doc["cluster.initial_master_nodes"])
	require.Equal(t, "ec2", doc["discovery.seed_providers"])
	require.NotContains(t, doc, "discovery.zen.minimum_master_nodes")
	// insertion order is kept
	require.True(t, strings.HasPrefix(conf, "cluster.name: demo\ncluster.initial_master_nodes:"))
}

func TestVotingRoles(t *testing.T) {
	expected := map[Role][]any{
		RoleManager:     {"master"},
		RoleData:        {"data", "ingest"},
		RoleSeedManager: {"master"},
		RoleSeedData:    {"master", "data"},
		RoleClient:      {},
		RoleML:          {"ml"},
	}
	for role, roles := range expected {
		conf, err := NewVoting().GetConfig("demo", false, "stack1", 3, WithRole(role))
		require.NoError(t, err)
		doc := parse(t, conf)
		require.Equal(t, roles, doc["node.roles"], role.String())
		if role.IsSeed() {
			require.Equal(t, "seed", doc["node.name"])
		}
	}
}

func TestQuorumRoles(t *testing.T) {
	conf, err := NewQuorum().GetConfig("demo", false, "stack1", 3, WithRole(RoleML))
	require.NoError(t, err)
	doc := parse(t, conf)
	require.Equal(t, "ml-node", doc["node.name"])
	require.Equal(t, true, doc["node.ml"])
	require.Equal(t, false, doc["node.master"])

	conf, err = NewQuorum().GetConfig("demo", false, "stack1", 3, WithRole(RoleSeedData))
	require.NoError(t, err)
	doc = parse(t, conf)
	require.Equal(t, "seed", doc["node.name"])
	require.Equal(t, true, doc["node.data"])
}

func TestEveryRoleHasOverlay(t *testing.T) {
	for _, role := range Roles() {
		require.NotEmpty(t, quorumRoles[role], role.String())
		require.NotEmpty(t, votingRoles[role], role.String())
	}
}

func TestRoleOverlayWins(t *testing.T) {
	base := Settings{{"cluster.name", "demo"}, {"node.name", "base"}, {"network.host", 0}}
	merged := base.Merge(Settings{{"node.name", "seed"}, {"node.master", true}})
	require.Equal(t, Settings{
		{"cluster.name", "demo"},
		{"node.name", "seed"},
		{"network.host", 0},
		{"node.master", true},
	}, merged)
	// base is left untouched
	v, ok := base.Get("node.name")
	require.True(t, ok)
	require.Equal(t, "base", v)
}

func TestAdditionalConfigAppendedVerbatim(t *testing.T) {
	extra := "node.name: shadowed\nplugins.security.disabled: true\n"
	for name, g := range generators() {
		t.Run(name, func(t *testing.T) {
			plain, err := g.GetConfig("demo", false, "stack1", 3, WithRole(RoleSeedManager))
			require.NoError(t, err)
			conf, err := g.GetConfig("demo", false, "stack1", 3, WithRole(RoleSeedManager), WithAdditionalConfig(extra))
			require.NoError(t, err)
			require.Equal(t, plain+"\n"+extra, conf)
			require.True(t, strings.HasSuffix(conf, extra))
		})
	}
}

func TestParseRole(t *testing.T) {
	for _, role := range Roles() {
		parsed, err := ParseRole(role.String())
		require.NoError(t, err)
		require.Equal(t, role, parsed)
	}
	_, err := ParseRole("Manager")
	require.ErrorIs(t, err, ErrUnknownRole)
	_, err = ParseRole("")
	require.ErrorIs(t, err, ErrUnknownRole)
}

func TestForEngine(t *testing.T) {
	g, err := ForEngine(FamilyElasticsearch, "6.8.23")
	require.NoError(t, err)
	require.Equal(t, "ES_6", g.Version())
	g, err = ForEngine(FamilyElasticsearch, "7.10.2")
	require.NoError(t, err)
	require.Equal(t, "ES_7", g.Version())
	g, err = ForEngine(FamilyOpenSearch, "2.11.0")
	require.NoError(t, err)
	require.Equal(t, "ES_7", g.Version())
	_, err = ForEngine(FamilyElasticsearch, "latest")
	require.ErrorIs(t, err, ErrInvalidVersion)
	_, err = ForEngine(Family("solr"), "9.0.0")
	require.ErrorIs(t, err, ErrUnknownDistribution)
}

func TestDetectFamily(t *testing.T) {
	f, err := DetectFamily("https://artifacts.opensearch.org/releases/bundle/opensearch/2.11.0/opensearch-2.11.0-linux-x64.tar.gz")
	require.NoError(t, err)
	require.Equal(t, FamilyOpenSearch, f)
	require.Equal(t, "config/opensearch.yml", f.ConfigFile())
	f, err = DetectFamily("https://artifacts.elastic.co/downloads/elasticsearch/elasticsearch-oss-7.10.2-linux-x86_64.tar.gz")
	require.NoError(t, err)
	require.Equal(t, FamilyElasticsearch, f)
	require.Equal(t, "kibana", f.Dashboards())
	_, err = DetectFamily("https://example.com/solr.tgz")
	require.ErrorIs(t, err, ErrUnknownDistribution)
}
