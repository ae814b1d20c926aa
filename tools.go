//go:build tools

// Package main tracks the mockgen tool used by go generate.
package main

import (
	_ "go.uber.org/mock/mockgen"
)
