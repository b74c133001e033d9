// Copyright (c) 2025 BVK Chaitanya

package db

import (
	"testing"

	"github.com/bvk/cryptoalerts/gobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyTypeName(t *testing.T) {
	assert.Equal(t, "SentAlert", keyTypeName("/alerts/sent/0a1b"))
	assert.Equal(t, "SentAlert", keyTypeName("/alerts/history/00000001741000000000-0a1b"))
	assert.Equal(t, "ScannerState", keyTypeName("/scanners/news"))
	assert.Equal(t, "TelegramState", keyTypeName("/telegram/alertbot/state"))
	assert.Equal(t, "", keyTypeName("/unknown"))

	v, err := TypeNameValue(keyTypeName("/scanners/news"))
	require.NoError(t, err)
	assert.IsType(t, new(gobs.ScannerState), v)

	_, err = TypeNameValue("TraderState")
	assert.Error(t, err)
}
