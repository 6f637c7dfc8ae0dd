package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	deperrors "github.com/input-output-hk/catalyst-forge-libs/deployer/errors"
)

func TestExitCode(t *testing.T) {
	base := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "sync dirs not a list", err: deperrors.NewConfigurationError("load", deperrors.ErrSyncDirsNotList), want: exitConfigError},
		{name: "missing bucket", err: deperrors.NewConfigurationError("validate", deperrors.ErrMissingBucket).WithCode(deperrors.CodeMissingSetting), want: exitConfigError},
		{name: "validation", err: deperrors.NewValidationError("templates/app.json", base), want: exitFailure},
		{name: "other", err: base, want: exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, versionString(), strings.TrimSpace(out.String()))
}

func TestSyncCommand_ConfigErrors(t *testing.T) {
	dir := t.TempDir()

	notList := filepath.Join(dir, "not-a-list.yml")
	require.NoError(t, os.WriteFile(notList, []byte("global:\n  sync_dest_bucket: demo\n  sync_dirs: templates\n"), 0o644))

	noBucket := filepath.Join(dir, "no-bucket.yml")
	require.NoError(t, os.WriteFile(noBucket, []byte("global:\n  sync_dirs: [templates]\n"), 0o644))

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing file", args: []string{"sync", "-c", filepath.Join(dir, "absent.yml")}},
		{name: "sync dirs not a list", args: []string{"sync", "-c", notList}},
		{name: "missing bucket", args: []string{"sync", "-c", noBucket, "-s", "api"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newRootCmd()
			var out bytes.Buffer
			cmd.SetOut(&out)
			cmd.SetErr(&out)
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Equal(t, exitConfigError, exitCode(err))
		})
	}
}

func TestSyncCommand_RejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"sync", "extra"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, exitFailure, exitCode(err))
}
