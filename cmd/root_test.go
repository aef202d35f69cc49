package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootHelpListsCommands(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"--help"})

	require.NoError(t, rootCmd.Execute())

	help := out.String()
	assert.Contains(t, help, "serve")
	assert.Contains(t, help, "ask")
	assert.Contains(t, help, "ingest")
	assert.Contains(t, help, "version")
}

func TestAskRequiresQuestion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"ask"})

	assert.Error(t, rootCmd.Execute())
}
