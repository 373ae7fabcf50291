//go:build tools
// +build tools

// Package tools records build-time dependencies that aren't used by the
// library itself, but are tracked by go mod and required to generate the
// mocks of the project.
package build

import (
	_ "github.com/golang/mock/mockgen"
)
