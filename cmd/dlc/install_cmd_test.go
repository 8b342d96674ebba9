// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallCmd_CopiesSelfIntoTargetDir(t *testing.T) {
	dir := t.TempDir()

	cmd := newInstallCmd()
	cmd.SetArgs([]string{dir})
	require.NoError(t, cmd.Execute())

	self, err := os.Executable()
	require.NoError(t, err)
	wantInfo, err := os.Stat(self)
	require.NoError(t, err)

	gotInfo, err := os.Stat(filepath.Join(dir, "dlc"))
	require.NoError(t, err)
	assert.Equal(t, wantInfo.Size(), gotInfo.Size())
}

func TestInstallCmd_RequiresExactlyOneArg(t *testing.T) {
	cmd := newInstallCmd()
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
