// Package defaults provides embedded copies of the sample configuration
// and identity files for the mimi init subcommand.
package defaults

import _ "embed"

// ConfigYAML is the sample configuration file.
//
//go:embed config.example.yaml
var ConfigYAML []byte

// IdentityMD is the sample assistant identity file.
//
//go:embed identity.example.md
var IdentityMD []byte
