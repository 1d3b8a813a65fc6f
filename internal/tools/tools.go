//go:build tools

// Package tools records the static-analysis and lint binaries this
// module is developed against, using the standard tools.go trick so
// `go mod tidy` keeps them in go.mod without pulling them into normal
// builds. Run with `go run <import path>` from a developer's GOPATH,
// never imported by unixv6fs itself.
package tools

import (
	_ "4d63.com/gochecknoinits"
	_ "github.com/gordonklaus/ineffassign"
	_ "github.com/jgautheron/goconst"
	_ "github.com/mibk/dupl"
	_ "github.com/stripe/safesql"
	_ "github.com/tsenart/deadcode"
	_ "golang.org/x/tools/cmd/goimports"
	_ "honnef.co/go/tools/cmd/staticcheck"
	_ "mvdan.cc/interfacer"
	_ "mvdan.cc/lint"
)
