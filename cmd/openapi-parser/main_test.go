package main

import (
	"testing"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func TestNewOpenAPIParserCommand(t *testing.T) {
	cmd := NewOpenAPIParserCommand()
	names := lo.Map(cmd.Commands(), func(c *cobra.Command, _ int) string { return c.Name() })
	require.ElementsMatch(t, []string{"convert", "version"}, names)
}
