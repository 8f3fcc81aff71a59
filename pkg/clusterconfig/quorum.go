package clusterconfig

// quorum roles toggle the three node type flags; seed, client and ml nodes also get a fixed node name
var quorumRoles = [...]Settings{
	RoleManager: {
		{"node.master", true},
		{"node.data", false},
		{"node.ingest", false},
	},
	RoleData: {
		{"node.master", false},
		{"node.data", true},
		{"node.ingest", true},
	},
	RoleSeedManager: {
		{"node.name", "seed"},
		{"node.master", true},
		{"node.data", false},
		{"node.ingest", false},
	},
	RoleSeedData: {
		{"node.name", "seed"},
		{"node.master", false},
		{"node.data", true},
		{"node.ingest", true},
	},
	RoleClient: {
		{"node.name", "client-node"},
		{"node.master", false},
		{"node.data", false},
		{"node.ingest", false},
	},
	RoleML: {
		{"node.name", "ml-node"},
		{"node.master", false},
		{"node.data", false},
		{"node.ingest", false},
		{"node.ml", true},
	},
}

// compile-time check that every role has an overlay
var _ = [1]struct{}{}[len(quorumRoles)-int(roleCount)]

// NewQuorum returns the generator for zen discovery clusters (Elasticsearch 6.x).
// See https://www.elastic.co/guide/en/elasticsearch/reference/6.8/modules-node.html#split-brain
func NewQuorum() Generator {
	return &engine{
		version: QuorumVersion,
		multiBase: func(clusterName string, stackName string, managerCount int) Settings {
			return Settings{
				{"cluster.name", clusterName},
				{"network.host", 0},
				{"discovery.zen.hosts_provider", "ec2"},
				{"discovery.zen.minimum_master_nodes", MinimumMasterNodes(managerCount)},
				{"discovery.ec2.tag.Name", Ec2TagFilter(stackName)},
			}
		},
		roles: quorumRoles,
	}
}
