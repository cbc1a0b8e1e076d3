package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datasetprep/internal/pipeline"
	"datasetprep/internal/testutil"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestPlanCommand(t *testing.T) {
	tests := []struct {
		args []string
		want pipeline.GeometryPlan
	}{
		{[]string{"plan", "800", "600"}, pipeline.GeometryPlan{ScaledWidth: 300, ScaledHeight: 225, OffsetX: 0, OffsetY: 37, CanvasWidth: 300, CanvasHeight: 300}},
		{[]string{"plan", "400", "800"}, pipeline.GeometryPlan{ScaledWidth: 150, ScaledHeight: 300, OffsetX: 75, OffsetY: 0, CanvasWidth: 300, CanvasHeight: 300}},
		{[]string{"plan", "800", "600", "--pad=false"}, pipeline.GeometryPlan{ScaledWidth: 300, ScaledHeight: 225, CanvasWidth: 300, CanvasHeight: 225}},
		{[]string{"plan", "100", "100", "--width", "64", "--height", "32"}, pipeline.GeometryPlan{ScaledWidth: 32, ScaledHeight: 32, OffsetX: 16, CanvasWidth: 64, CanvasHeight: 32}},
	}
	for _, tc := range tests {
		out, err := execute(t, tc.args...)
		require.NoError(t, err, tc.args)

		var got pipeline.GeometryPlan
		require.NoError(t, json.Unmarshal([]byte(out), &got), out)
		assert.Equal(t, tc.want, got, tc.args)
	}
}

func TestPlanCommand_InvalidArgs(t *testing.T) {
	_, err := execute(t, "plan", "0", "10")
	assert.ErrorIs(t, err, pipeline.ErrInvalidDimension)

	_, err = execute(t, "plan", "wide", "10")
	assert.Error(t, err)

	_, err = execute(t, "plan", "10")
	assert.Error(t, err)
}

func TestRunCommand(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	testutil.WriteTestImage(t, in, "a/b.png", "png", 64, 48)
	testutil.WriteFile(t, in, "broken.jpg", []byte("garbage"))
	manifestPath := filepath.Join(t.TempDir(), "manifest.db")

	_, err := execute(t, "run", "-i", in, "-o", out, "--format", "png", "--width", "32", "--height", "32", "--manifest", manifestPath)
	require.NoError(t, err)

	b := testutil.DecodeFile(t, filepath.Join(out, "a", "b.png")).Bounds()
	assert.Equal(t, 32, b.Dx())
	assert.Equal(t, 32, b.Dy())
	assert.FileExists(t, manifestPath)
}

func TestRunCommand_RequiresDirs(t *testing.T) {
	_, err := execute(t, "run")
	assert.ErrorContains(t, err, "input_dir")
}

func TestRunCommand_ConfigFile(t *testing.T) {
	in, out := t.TempDir(), t.TempDir()
	testutil.WriteTestImage(t, in, "x.jpg", "jpeg", 20, 40)
	cfgPath := filepath.Join(t.TempDir(), "datasetprep.yaml")
	body := "input_dir: " + in + "\noutput_dir: " + out + "\ntarget_width: 16\ntarget_height: 16\noutput_format: png\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	_, err := execute(t, "run", "--config", cfgPath, "--height", "8")
	require.NoError(t, err)

	b := testutil.DecodeFile(t, filepath.Join(out, "x.png")).Bounds()
	assert.Equal(t, 16, b.Dx())
	assert.Equal(t, 8, b.Dy())
}
