// Package confloader provides the configuration loading mechanism.
//
// It is a thin layer over koanf that layers sources in a fixed order:
//
//  1. Command-line flags (LoadMap, applied by the caller last)
//  2. Environment variables (BANKLINE_<SECTION>_<KEY>)
//  3. Configuration file (YAML)
//  4. Default values (LoadMap, applied first)
//
// Environment keys split on the first underscore after the prefix only,
// so BANKLINE_SERVER_BASE_URL maps to server.base_url.
package confloader
