package compilers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutput_HasFatalError(t *testing.T) {
	out := Output{Errors: []OutputError{
		{Severity: "warning", Message: "unused variable"},
	}}
	assert.False(t, out.HasFatalError())

	out.Errors = append(out.Errors, OutputError{Severity: "error", Message: "type mismatch"})
	assert.True(t, out.HasFatalError())
}

func TestNewSolidityInput_ForcesOutputSelection(t *testing.T) {
	input := NewSolidityInput(map[string]Source{"a.sol": {Content: "contract A {}"}}, nil)

	assert.Equal(t, "Solidity", input.Language)
	sel, ok := input.Settings["outputSelection"].(map[string]interface{})
	assert.True(t, ok)
	assert.Contains(t, sel, "*")
}

func TestNewVyperInput_PassesSettingsThrough(t *testing.T) {
	settings := map[string]interface{}{"evmVersion": "shanghai"}
	input := NewVyperInput(map[string]Source{"a.vy": {Content: "# vyper"}}, settings)

	assert.Equal(t, "Vyper", input.Language)
	assert.Equal(t, "shanghai", input.Settings["evmVersion"])
}
