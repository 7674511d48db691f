package cmd

import "strings"

// SplitArgs separates the agent's own arguments from those meant for rclone.
//
// git-lfs starts the agent with a single argument string from
// lfs.customtransfer.<name>.args, mixing agent and rclone flags:
//
//	remote: --stats 100ms --config ../cfg --log-level DEBUG --log-file /tmp/log
//
// Agent flags (and their values) are returned in agent, followed by the
// remote: the first argument that is neither a flag nor an agent flag value.
// Everything else is returned in passthrough, in order. Arguments after "--"
// always pass through.
func SplitArgs(args []string) (agent, passthrough []string) {
	values := valueFlags()
	bools := boolFlags()

	remote, haveRemote := "", false
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			passthrough = append(passthrough, args[i+1:]...)
			break
		}

		name, hasValue := flagName(arg)
		switch {
		case name == "":
			if haveRemote {
				passthrough = append(passthrough, arg)
			} else {
				remote, haveRemote = arg, true
			}
		case values[name]:
			agent = append(agent, arg)
			if !hasValue && i+1 < len(args) {
				i++
				agent = append(agent, args[i])
			}
		case bools[name] && !hasValue:
			agent = append(agent, arg)
		default:
			passthrough = append(passthrough, arg)
		}
	}

	if haveRemote {
		agent = append(agent, remote)
	}
	return agent, passthrough
}

// flagName returns the name of a -flag / --flag[=value] argument, or "" for
// a positional argument.
func flagName(arg string) (name string, hasValue bool) {
	if len(arg) < 2 || arg[0] != '-' {
		return "", false
	}
	trimmed := strings.TrimPrefix(arg[1:], "-")
	name, _, hasValue = strings.Cut(trimmed, "=")
	return name, hasValue
}
