// Package buildinfo reports the version of the bankline binary.
//
// Version, Commit and BuildTime are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/bankline-go/internal/infra/buildinfo.Version=v1.0.0" ./cmd/bankline
//
// When they are left at their defaults, Get falls back to the VCS stamp
// the Go toolchain embeds in the binary.
package buildinfo
