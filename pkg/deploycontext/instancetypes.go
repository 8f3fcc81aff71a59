package deploycontext

import (
	"fmt"
	"slices"
	"strings"
)

const (
	ArchX64   = "x64"
	ArchArm64 = "arm64"
)

var x64InstanceTypes = []string{
	"m5.large", "m5.xlarge", "m5.2xlarge", "m5.4xlarge", "m5.8xlarge", "m5.12xlarge", "m5.16xlarge", "m5.24xlarge",
	"r5.large", "r5.xlarge", "r5.2xlarge", "r5.4xlarge", "r5.8xlarge", "r5.12xlarge", "r5.16xlarge", "r5.24xlarge",
	"c5.large", "c5.xlarge", "c5.2xlarge", "c5.4xlarge", "c5.9xlarge", "c5.12xlarge", "c5.18xlarge", "c5.24xlarge",
	"i3.large", "i3.xlarge", "i3.2xlarge", "i3.4xlarge", "i3.8xlarge", "i3.16xlarge",
	"g5.xlarge", "g5.2xlarge", "g5.4xlarge", "g5.8xlarge", "inf1.xlarge", "inf1.2xlarge", "inf1.6xlarge",
}

var arm64InstanceTypes = []string{
	"m6g.large", "m6g.xlarge", "m6g.2xlarge", "m6g.4xlarge", "m6g.8xlarge", "m6g.12xlarge", "m6g.16xlarge",
	"r6g.large", "r6g.xlarge", "r6g.2xlarge", "r6g.4xlarge", "r6g.8xlarge", "r6g.12xlarge", "r6g.16xlarge",
	"c6g.large", "c6g.xlarge", "c6g.2xlarge", "c6g.4xlarge", "c6g.8xlarge", "c6g.12xlarge", "c6g.16xlarge",
	"r6gd.large", "r6gd.xlarge", "r6gd.2xlarge", "r6gd.4xlarge", "r6gd.8xlarge", "r6gd.12xlarge", "r6gd.16xlarge",
}

// InstanceTypes lists the instance types accepted for data and ml nodes on arch.
func InstanceTypes(arch string) []string {
	if arch == ArchArm64 {
		return slices.Clone(arm64InstanceTypes)
	}
	return slices.Clone(x64InstanceTypes)
}

// DefaultDataInstanceType is used for data and ml nodes when no type is given.
func DefaultDataInstanceType(arch string) string {
	if arch == ArchArm64 {
		return "r6g.xlarge"
	}
	return "r5.xlarge"
}

// DefaultInstanceType is used for manager, seed and client nodes.
func DefaultInstanceType(arch string) string {
	if arch == ArchArm64 {
		return "c6g.xlarge"
	}
	return "c5.xlarge"
}

// instanceType returns requested, or the arch default when requested is empty.
func instanceType(requested string, arch string) (string, error) {
	if requested == "" {
		return DefaultDataInstanceType(arch), nil
	}
	valid := InstanceTypes(arch)
	if !slices.Contains(valid, requested) {
		return "", fmt.Errorf("%w: Invalid instance type %q provided for %s, please provide any one of the following: %s",
			ErrInvalidContext, requested, arch, strings.Join(valid, ", "))
	}
	return requested, nil
}

// AmiArch maps the context architecture to the EC2 and SSM naming.
func AmiArch(arch string) string {
	if arch == ArchArm64 {
		return "arm64"
	}
	return "x86_64"
}
