// Package deploycontext reads and validates the deployment parameters of a cluster.
//
// Parameters are keyed by their context names (distVersion, managerNodeCount, ...).
// Load applies, from lowest to highest precedence: struct defaults, OSCLUSTER_*
// environment variables, the selected block of a context file, and key=value pairs.
package deploycontext

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/creasty/defaults"
	"github.com/rglonek/envconfig"
)

var ErrInvalidContext = errors.New("invalid deployment context")

// Context holds the raw parameters before validation. Flags that
// must be given literally as "true" or "false" stay strings.
type Context struct {
	DistVersion              string `context:"distVersion" envconfig:"OSCLUSTER_DIST_VERSION" validate:"required"`
	DistributionURL          string `context:"distributionUrl" envconfig:"OSCLUSTER_DISTRIBUTION_URL" validate:"required"`
	DashboardsURL            string `context:"dashboardsUrl" envconfig:"OSCLUSTER_DASHBOARDS_URL"`
	CPUArch                  string `context:"cpuArch" envconfig:"OSCLUSTER_CPU_ARCH" validate:"required,oneof=x64 arm64"`
	SecurityDisabled         string `context:"securityDisabled" envconfig:"OSCLUSTER_SECURITY_DISABLED" validate:"required,oneof=true false"`
	MinDistribution          string `context:"minDistribution" envconfig:"OSCLUSTER_MIN_DISTRIBUTION" validate:"required,oneof=true false"`
	SingleNodeCluster        bool   `context:"singleNodeCluster" envconfig:"OSCLUSTER_SINGLE_NODE_CLUSTER"`
	ManagerNodeCount         int    `context:"managerNodeCount" envconfig:"OSCLUSTER_MANAGER_NODE_COUNT" default:"3" validate:"min=0"`
	DataNodeCount            int    `context:"dataNodeCount" envconfig:"OSCLUSTER_DATA_NODE_COUNT" default:"2" validate:"min=0"`
	ClientNodeCount          int    `context:"clientNodeCount" envconfig:"OSCLUSTER_CLIENT_NODE_COUNT" default:"0" validate:"min=0"`
	IngestNodeCount          int    `context:"ingestNodeCount" envconfig:"OSCLUSTER_INGEST_NODE_COUNT" default:"0" validate:"min=0"`
	MLNodeCount              int    `context:"mlNodeCount" envconfig:"OSCLUSTER_ML_NODE_COUNT" default:"0" validate:"min=0"`
	DataInstanceType         string `context:"dataInstanceType" envconfig:"OSCLUSTER_DATA_INSTANCE_TYPE"`
	MLInstanceType           string `context:"mlInstanceType" envconfig:"OSCLUSTER_ML_INSTANCE_TYPE"`
	DataNodeStorage          int    `context:"dataNodeStorage" envconfig:"OSCLUSTER_DATA_NODE_STORAGE" default:"100" validate:"min=1"`
	MLNodeStorage            int    `context:"mlNodeStorage" envconfig:"OSCLUSTER_ML_NODE_STORAGE" default:"100" validate:"min=1"`
	StorageVolumeType        string `context:"storageVolumeType" envconfig:"OSCLUSTER_STORAGE_VOLUME_TYPE" default:"gp2" validate:"oneof=standard gp2 gp3 io1 io2 sc1 st1"`
	JvmSysProps              string `context:"jvmSysProps" envconfig:"OSCLUSTER_JVM_SYS_PROPS"`
	AdditionalConfig         string `context:"additionalConfig" envconfig:"OSCLUSTER_ADDITIONAL_CONFIG"`
	AdditionalOsdConfig      string `context:"additionalOsdConfig" envconfig:"OSCLUSTER_ADDITIONAL_OSD_CONFIG"`
	Suffix                   string `context:"suffix" envconfig:"OSCLUSTER_SUFFIX"`
	NetworkStackSuffix       string `context:"networkStackSuffix" envconfig:"OSCLUSTER_NETWORK_STACK_SUFFIX"`
	Use50PercentHeap         bool   `context:"use50PercentHeap" envconfig:"OSCLUSTER_USE_50_PERCENT_HEAP"`
	IsInternal               bool   `context:"isInternal" envconfig:"OSCLUSTER_IS_INTERNAL"`
	CustomRoleArn            string `context:"customRoleArn" envconfig:"OSCLUSTER_CUSTOM_ROLE_ARN"`
	NetworkAvailabilityZones int    `context:"networkAvailabilityZones" envconfig:"OSCLUSTER_NETWORK_AVAILABILITY_ZONES" default:"3" validate:"min=1"`
	VpcID                    string `context:"vpcId" envconfig:"OSCLUSTER_VPC_ID"`
	SecurityGroupID          string `context:"securityGroupId" envconfig:"OSCLUSTER_SECURITY_GROUP_ID"`
	Cidr                     string `context:"cidr" envconfig:"OSCLUSTER_CIDR" default:"10.0.0.0/16" validate:"cidrv4"`
	RestrictServerAccessTo   string `context:"restrictServerAccessTo" envconfig:"OSCLUSTER_RESTRICT_SERVER_ACCESS_TO"`
	ServerAccessType         string `context:"serverAccessType" envconfig:"OSCLUSTER_SERVER_ACCESS_TYPE" validate:"omitempty,oneof=ipv4 ipv6 prefixList securityGroupId"`
}

// Sources selects where Load reads parameters from.
type Sources struct {
	ContextFile string
	ContextID   string
	// Pairs are key=value strings as given with -c on the command line.
	Pairs    []string
	ParseEnv bool
}

// Load builds a Context from defaults and the given sources. It does not validate values; see Resolve.
func Load(src Sources) (*Context, error) {
	c := new(Context)
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("could not set defaults: %w", err)
	}
	if src.ParseEnv {
		if err := envconfig.Process("OSCLUSTER", c); err != nil {
			return nil, fmt.Errorf("could not process environment variables: %w", err)
		}
	}
	if (src.ContextFile != "") != (src.ContextID != "") {
		return nil, fmt.Errorf("%w: The following context parameters are all required when in use: [contextFile, contextId]", ErrInvalidContext)
	}
	if src.ContextFile != "" {
		block, err := readContextFile(src.ContextFile, src.ContextID)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(block))
		for k := range block {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := c.Set(k, block[k]); err != nil {
				return nil, err
			}
		}
	}
	for _, pair := range src.Pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("%w: context parameter %q must be given as key=value", ErrInvalidContext, pair)
		}
		if err := c.Set(strings.TrimSpace(k), v); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// readContextFile returns the contextId block of a JSON context file, with every value as a string.
func readContextFile(fileName string, contextID string) (map[string]string, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("could not read context file: %w", err)
	}
	file := map[string]map[string]any{}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: could not parse context file %s: %s", ErrInvalidContext, fileName, err)
	}
	block, ok := file[contextID]
	if !ok || block == nil {
		return nil, fmt.Errorf("%w: No CDK context block found for contextId '%s' in file %s", ErrInvalidContext, contextID, fileName)
	}
	out := make(map[string]string, len(block))
	for k, v := range block {
		switch val := v.(type) {
		case nil:
			continue
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		default:
			// objects and arrays, e.g. additionalConfig given inline
			raw, err := json.Marshal(val)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %s", ErrInvalidContext, k, err)
			}
			out[k] = string(raw)
		}
	}
	return out, nil
}

// Set assigns a parameter by its context key. Booleans are true only for the literal "true".
func (c *Context) Set(key string, value string) error {
	val := reflect.ValueOf(c).Elem()
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		if typ.Field(i).Tag.Get("context") != key {
			continue
		}
		field := val.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(value)
		case reflect.Bool:
			field.SetBool(value == "true")
		case reflect.Int:
			n, err := strconv.Atoi(strings.TrimSpace(value))
			if err != nil {
				return fmt.Errorf("%w: %s must be an integer, got %q", ErrInvalidContext, key, value)
			}
			field.SetInt(int64(n))
		}
		return nil
	}
	return fmt.Errorf("%w: unknown context parameter %q, valid parameters are: %s", ErrInvalidContext, key, strings.Join(Keys(), ", "))
}

// Keys lists every context key Set accepts.
func Keys() []string {
	typ := reflect.TypeOf(Context{})
	keys := make([]string, 0, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		keys = append(keys, typ.Field(i).Tag.Get("context"))
	}
	return keys
}
