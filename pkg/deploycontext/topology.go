package deploycontext

import "github.com/lewijacn/opensearch-cluster-cdk/pkg/clusterconfig"

// GroupKind selects the instance type and storage used by a node group.
type GroupKind string

const (
	KindManager GroupKind = "manager"
	KindSeed    GroupKind = "seed"
	KindData    GroupKind = "data"
	KindClient  GroupKind = "client"
	KindML      GroupKind = "ml"
)

type Topology struct {
	SingleNode bool
	Manager    int
	Data       int
	Client     int
	Ingest     int
	ML         int
	Zones      int
}

// Group is one auto scaling group of identically configured nodes.
type Group struct {
	// ID is the logical id of the auto scaling group, also used by discovery-ec2 tag filters.
	ID   string
	Kind GroupKind
	// Role is the configuration overlay applied to the nodes; nil applies none.
	Role     *clusterconfig.Role
	RoleTag  string
	Capacity int
}

func role(r clusterconfig.Role) *clusterconfig.Role {
	return &r
}

// Groups returns the node groups to create. In multi-node mode one node is
// folded out of the manager count into the seed group, or out of the data
// count when there are no managers. The data group is always returned, even
// with zero capacity, as it is the load balancer target when there are no client nodes.
func (t Topology) Groups() []Group {
	if t.SingleNode {
		return []Group{{ID: "dataNodeAsg", Kind: KindData, RoleTag: "client", Capacity: 1}}
	}
	managers := t.Manager
	data := t.Data
	seedRole := clusterconfig.RoleSeedManager
	if managers > 0 {
		managers--
	} else {
		data--
		seedRole = clusterconfig.RoleSeedData
	}
	groups := []Group{}
	if managers > 0 {
		groups = append(groups, Group{ID: "managerNodeAsg", Kind: KindManager, Role: role(clusterconfig.RoleManager), RoleTag: "manager", Capacity: managers})
	}
	groups = append(groups, Group{ID: "seedNodeAsg", Kind: KindSeed, Role: role(seedRole), RoleTag: "manager", Capacity: 1})
	dataTag := "data"
	if t.Client == 0 {
		// the data group serves client traffic and is tagged as such
		dataTag = "client"
	}
	groups = append(groups, Group{ID: "dataNodeAsg", Kind: KindData, Role: role(clusterconfig.RoleData), RoleTag: dataTag, Capacity: max(data, 0)})
	if t.Client > 0 {
		groups = append(groups, Group{ID: "clientNodeAsg", Kind: KindClient, Role: role(clusterconfig.RoleClient), RoleTag: "client", Capacity: t.Client})
	}
	if t.ML > 0 {
		groups = append(groups, Group{ID: "mlNodeAsg", Kind: KindML, Role: role(clusterconfig.RoleML), RoleTag: "ml-node", Capacity: t.ML})
	}
	return groups
}

// ClientGroupID is the group the load balancer forwards to.
func (t Topology) ClientGroupID() string {
	if !t.SingleNode && t.Client > 0 {
		return "clientNodeAsg"
	}
	return "dataNodeAsg"
}

// NodeCount is the total number of instances across all groups.
func (t Topology) NodeCount() int {
	n := 0
	for _, g := range t.Groups() {
		n += g.Capacity
	}
	return n
}
