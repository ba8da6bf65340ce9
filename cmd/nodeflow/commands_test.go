package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nodeflow/internal/behavior"
	"nodeflow/internal/behavior/builtin"
	"nodeflow/internal/codec"
	"nodeflow/internal/domain"
	"nodeflow/internal/loader"
)

const (
	sourceID  = "6f1c2a9e-3b4d-4e5f-8a7b-1c2d3e4f5a6b"
	displayID = "0a9b8c7d-6e5f-4a3b-9c2d-1e0f9a8b7c6d"
	strayID   = "11111111-2222-4333-8444-555555555555"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonFlag = false
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeScene(t *testing.T, name string, doc *codec.Document) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, loader.SaveFile(path, doc))
	return path
}

func validScene() *codec.Document {
	return &codec.Document{
		Nodes: []codec.NodeRecord{
			{ID: sourceID, Type: builtin.TypeNumberSource, Position: domain.Position{X: 0, Y: 0}},
			{ID: displayID, Type: builtin.TypeNumberDisplay, Position: domain.Position{X: 300, Y: 0}},
		},
		Connections: []codec.ConnectionRecord{
			{OutID: sourceID, OutIndex: 0, InID: displayID, InIndex: 0},
		},
	}
}

func TestCommandsConfigured(t *testing.T) {
	assert.Equal(t, "nodeflow", rootCmd.Use)
	for _, cmd := range []string{"serve", "validate", "convert", "types"} {
		found, _, err := rootCmd.Find([]string{cmd})
		require.NoError(t, err, cmd)
		assert.NotNil(t, found.RunE, cmd)
	}
}

func TestTypesCommand(t *testing.T) {
	out, err := execute(t, "types")
	require.NoError(t, err)
	assert.Contains(t, out, "TYPE")
	assert.Contains(t, out, builtin.TypeNumberToText)

	out, err = execute(t, "types", "--json")
	require.NoError(t, err)
	var types []behavior.TypeInfo
	require.NoError(t, json.Unmarshal([]byte(out), &types))
	assert.NotEmpty(t, types)
}

func TestValidateCommand(t *testing.T) {
	path := writeScene(t, "scene.json", validScene())

	out, err := execute(t, "validate", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 nodes, 1 connections")

	out, err = execute(t, "validate", "--json", path)
	require.NoError(t, err)
	var result validateResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 2, result.Nodes)
	assert.Equal(t, 1, result.Connections)
	assert.NotEmpty(t, result.Fingerprint)
}

func TestValidateReportsSkipped(t *testing.T) {
	doc := validScene()
	doc.Nodes = append(doc.Nodes, codec.NodeRecord{ID: strayID, Type: "mystery"})
	path := writeScene(t, "scene.yaml", doc)

	out, err := execute(t, "validate", path)
	assert.Error(t, err)
	assert.Contains(t, out, "skipped node "+strayID)
}

func TestValidateMissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConvertCommand(t *testing.T) {
	src := writeScene(t, "scene.json", validScene())
	dst := filepath.Join(t.TempDir(), "scene.yaml")

	out, err := execute(t, "convert", src, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "2 nodes, 1 connections")

	doc, err := loader.LoadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, validScene().Connections, doc.Connections)
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, sourceID, doc.Nodes[0].ID)
	assert.Equal(t, builtin.TypeNumberDisplay, doc.Nodes[1].TypeID())
}
