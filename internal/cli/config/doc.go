// Package config provides the bankline CLI configuration.
//
//   - spec.go: CLIConfig struct (~/.bankline/config.yaml)
//   - loader.go: loading through confloader, saving as YAML
//
// Sources are layered flag > env (BANKLINE_*) > file > defaults.
package config
