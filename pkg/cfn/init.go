package cfn

import (
	"fmt"
	"strings"
)

// Init builds AWS::CloudFormation::Init metadata with a single config set.
// cfn-init installs packages, then writes files, then runs commands sorted by key,
// so commands are keyed with a zero-padded sequence number.
type Init struct {
	packages map[string]map[string][]string
	files    map[string]map[string]any
	commands []initCommand
}

type initCommand struct {
	name         string
	command      string
	cwd          string
	ignoreErrors bool
}

func NewInit() *Init {
	return &Init{
		packages: make(map[string]map[string][]string),
		files:    make(map[string]map[string]any),
	}
}

// Package installs the latest version of name with the given package manager, e.g. yum.
func (i *Init) Package(manager string, name string) *Init {
	if _, ok := i.packages[manager]; !ok {
		i.packages[manager] = make(map[string][]string)
	}
	i.packages[manager][name] = []string{}
	return i
}

func (i *Init) File(path string, content string, mode string) *Init {
	f := map[string]any{
		"content": content,
		"owner":   "root",
		"group":   "root",
	}
	if mode != "" {
		f["mode"] = mode
	}
	i.files[path] = f
	return i
}

// Command appends a shell command; commands run in the order they were appended.
func (i *Init) Command(name string, command string, cwd string, ignoreErrors bool) *Init {
	i.commands = append(i.commands, initCommand{name: name, command: command, cwd: cwd, ignoreErrors: ignoreErrors})
	return i
}

// CommandKeys returns the metadata keys of the commands, in execution order.
func (i *Init) CommandKeys() []string {
	keys := make([]string, 0, len(i.commands))
	for n, c := range i.commands {
		keys = append(keys, commandKey(n, c.name))
	}
	return keys
}

func commandKey(n int, name string) string {
	name = strings.ReplaceAll(name, " ", "-")
	return fmt.Sprintf("%03d_%s", n, name)
}

// Metadata returns the resource Metadata value carrying the init configuration.
func (i *Init) Metadata() map[string]any {
	config := map[string]any{}
	if len(i.packages) > 0 {
		config["packages"] = i.packages
	}
	if len(i.files) > 0 {
		config["files"] = i.files
	}
	if len(i.commands) > 0 {
		commands := make(map[string]any, len(i.commands))
		for n, c := range i.commands {
			cmd := map[string]any{
				"command":      c.command,
				"ignoreErrors": c.ignoreErrors,
			}
			if c.cwd != "" {
				cmd["cwd"] = c.cwd
			}
			commands[commandKey(n, c.name)] = cmd
		}
		config["commands"] = commands
	}
	return map[string]any{
		"AWS::CloudFormation::Init": map[string]any{
			"configSets": map[string][]string{"default": {"config"}},
			"config":     config,
		},
	}
}

// UserData returns the boot script that runs cfn-init against the metadata on
// initResource and reports the result to signalResource with cfn-signal.
func UserData(initResource string, signalResource string) map[string]any {
	script := strings.Join([]string{
		"#!/bin/bash",
		"(",
		"  set +e",
		fmt.Sprintf("  /opt/aws/bin/cfn-init -v --region ${AWS::Region} --stack ${AWS::StackName} --resource %s -c default", initResource),
		fmt.Sprintf("  /opt/aws/bin/cfn-signal -e $? --region ${AWS::Region} --stack ${AWS::StackName} --resource %s", signalResource),
		"  cat /var/log/cfn-init.log >&2",
		")",
	}, "\n")
	return Base64(Sub(script))
}
