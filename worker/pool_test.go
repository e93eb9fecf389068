package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txpull/sourcecheck/db/models"
	"github.com/txpull/sourcecheck/verifier"
)

func TestDecodeHex_StripsPrefix(t *testing.T) {
	b, err := decodeHex("0x6001")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x01}, b)
}

func TestDecodeHex_EmptyIsNil(t *testing.T) {
	b, err := decodeHex("")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestVerdictToModel(t *testing.T) {
	assert.Equal(t, models.MatchPerfect, verdictToModel(verifier.VerdictPerfect))
}

func TestBuildCompilationFromMetadata_MissingSourceErrors(t *testing.T) {
	metadata := []byte(`{
		"language": "Solidity",
		"compiler": {"version": "0.8.19+commit.7dd6d404"},
		"settings": {"compilationTarget": {"contracts/Foo.sol": "Foo"}},
		"sources": {"contracts/Foo.sol": {}}
	}`)
	_, err := buildCompilationFromMetadata(metadata, nil)
	assert.Error(t, err)
}

func TestBuildCompilationFromMetadata_UsesFetchedSource(t *testing.T) {
	metadata := []byte(`{
		"language": "Solidity",
		"compiler": {"version": "0.8.19+commit.7dd6d404"},
		"settings": {"compilationTarget": {"contracts/Foo.sol": "Foo"}},
		"sources": {"contracts/Foo.sol": {}}
	}`)
	c, err := buildCompilationFromMetadata(metadata, map[string]string{"contracts/Foo.sol": "contract Foo {}"})
	require.NoError(t, err)
	assert.Equal(t, "Foo", c.contractName)
	assert.Equal(t, "contract Foo {}", c.sources["contracts/Foo.sol"].Content)
}
