// Package version provides version information for the defi-sim application.
package version

// Version is the current version of the defi-sim application.
const Version = "0.1.0"

// AgentString returns the full agent string with versioning.
func AgentString() string {
	return "defi-sim@v" + Version
}
