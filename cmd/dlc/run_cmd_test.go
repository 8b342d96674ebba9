// SPDX-License-Identifier: MPL-2.0

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlctest/disposables/internal/testutil"
	"github.com/dlctest/disposables/internal/wire"
)

func TestRunSupervised_MissingSetupEnvVar(t *testing.T) {
	restore := testutil.MustUnsetenv(t, wire.SetupEnvVar)
	defer restore()

	err := runSupervised([]string{"true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), wire.SetupEnvVar)
}

func TestRunSupervised_MalformedSetupEnvVar(t *testing.T) {
	restore := testutil.MustSetenv(t, wire.SetupEnvVar, "not json")
	defer restore()

	err := runSupervised([]string{"true"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}
