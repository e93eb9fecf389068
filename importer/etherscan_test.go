package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindContractPathByName_SingleFileShortcut(t *testing.T) {
	files := map[string]jsonSource{"Foo.sol": {Content: "contract Foo {}"}}
	path, ok := findContractPathByName(files, "Bar")
	require.True(t, ok)
	assert.Equal(t, "Foo.sol", path)
}

func TestFindContractPathByName_ScansMultipleFiles(t *testing.T) {
	files := map[string]jsonSource{
		"contracts/Lib.sol": {Content: "library Lib {}"},
		"contracts/Foo.sol": {Content: "contract Foo is Lib {}"},
	}
	path, ok := findContractPathByName(files, "Foo")
	require.True(t, ok)
	assert.Equal(t, "contracts/Foo.sol", path)
}

func TestFindContractPathByName_NotFound(t *testing.T) {
	files := map[string]jsonSource{"contracts/Lib.sol": {Content: "library Lib {}"}}
	_, ok := findContractPathByName(files, "Missing")
	assert.False(t, ok)
}

func TestSettingsFromResult_OptimizerAndEVMVersion(t *testing.T) {
	r := sourceCodeResult{OptimizationUsed: "1", Runs: "200", EVMVersion: "istanbul"}
	settings := settingsFromResult(r)
	optimizer := settings["optimizer"].(map[string]interface{})
	assert.Equal(t, true, optimizer["enabled"])
	assert.Equal(t, 200, optimizer["runs"])
	assert.Equal(t, "istanbul", settings["evmVersion"])
}

func TestSettingsFromResult_DefaultEVMVersionOmitted(t *testing.T) {
	r := sourceCodeResult{OptimizationUsed: "0", Runs: "0", EVMVersion: "Default"}
	settings := settingsFromResult(r)
	_, ok := settings["evmVersion"]
	assert.False(t, ok)
}
