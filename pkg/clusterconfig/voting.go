package clusterconfig

var votingRoles = [...]Settings{
	RoleManager: {
		{"node.roles", []string{"master"}},
	},
	RoleData: {
		{"node.roles", []string{"data", "ingest"}},
	},
	RoleSeedManager: {
		{"node.name", "seed"},
		{"node.roles", []string{"master"}},
	},
	RoleSeedData: {
		{"node.name", "seed"},
		{"node.roles", []string{"master", "data"}},
	},
	RoleClient: {
		{"node.name", "client-node"},
		{"node.roles", []string{}},
	},
	RoleML: {
		{"node.name", "ml-node"},
		{"node.roles", []string{"ml"}},
	},
}

var _ = [1]struct{}{}[len(votingRoles)-int(roleCount)]

// NewVoting returns the generator for voting-based discovery clusters
// (Elasticsearch 7.x, OpenSearch). The seed node is the only initial master.
func NewVoting() Generator {
	return &engine{
		version: VotingVersion,
		multiBase: func(clusterName string, stackName string, _ int) Settings {
			return Settings{
				{"cluster.name", clusterName},
				{"cluster.initial_master_nodes", []string{"seed"}},
				{"discovery.seed_providers", "ec2"},
				{"network.host", 0},
				{"discovery.ec2.tag.Name", Ec2TagFilter(stackName)},
			}
		},
		roles: votingRoles,
	}
}
