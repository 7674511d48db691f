// Package config handles the optional YAML agent config file.
package config

import (
	"os"
	"regexp"
)

// envVarPattern matches ${VAR} and ${VAR:-default}.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// LookupFunc resolves an environment variable.
type LookupFunc func(name string) (string, bool)

// ExpandEnv replaces ${VAR} and ${VAR:-default} in input using the process
// environment. Unset variables without a default expand to "".
func ExpandEnv(input string) string {
	return ExpandWith(input, os.LookupEnv)
}

// ExpandWith is ExpandEnv with a custom lookup.
// The default applies when the variable is unset or empty.
func ExpandWith(input string, lookup LookupFunc) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if value, ok := lookup(groups[1]); ok && value != "" {
			return value
		}
		return groups[2]
	})
}
