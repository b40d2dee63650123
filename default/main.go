// Package defaults provides embedded default assets (config and user dictionary).
package defaults

import _ "embed"

//go:embed default_config.toml
var DefaultConfigTOML string

//go:embed default_dictionary.toml
var DefaultDictionaryTOML string
