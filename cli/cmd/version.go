package cmd

import (
	"fmt"
	"runtime/debug"
)

// set with -ldflags "-X github.com/lewijacn/opensearch-cluster-cdk/cli/cmd.version=..."
var version = "0.1.0"

type VersionCmd struct {
	Help HelpCmd `command:"help" subcommands-optional:"true" description:"Print help"`
}

func (c *VersionCmd) Execute(args []string) error {
	system, err := Initialize(&Init{}, []string{"version"}, c, args...)
	if err != nil {
		return Error(err, system, []string{"version"}, c, args)
	}
	fmt.Println(GetVersion())
	return nil
}

// GetVersion returns the version with the vcs revision when the binary was built from a checkout.
func GetVersion() string {
	v := "v" + version
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v + "-unofficial"
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" && len(setting.Value) >= 7 {
			return v + "-" + setting.Value[:7]
		}
	}
	return v + "-unofficial"
}
