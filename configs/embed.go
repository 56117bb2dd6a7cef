// Package configs embeds the configuration template written by
// `gutenindex config init`.
//
// Configuration hierarchy (see internal/config Load):
//  1. Hardcoded defaults (config.NewConfig)
//  2. User config (~/.config/gutenindex/config.yaml)
//  3. Project config (.gutenindex.yaml)
//  4. Environment variables (GUTENINDEX_*, TYPESENSE_*)
package configs

import _ "embed"

// ConfigTemplate is the commented example configuration.
//
//go:embed config.example.yaml
var ConfigTemplate string
