package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-box-pipeline/internal/cli"
)

func TestRootCommand(t *testing.T) {
	root := cli.NewRootCmd(version)
	assert.Equal(t, "boxpipe", root.Use)
	assert.Equal(t, "dev", root.Version)
	assert.NotNil(t, run)
}
