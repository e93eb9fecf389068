package importer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToJob_BuildsJSONInputJob(t *testing.T) {
	result := ProcessedEtherscanResult{
		CompilerVersion: "v0.8.19+commit.7dd6d404",
		Language:        "Solidity",
		JSONInput:       []byte(`{"language":"Solidity","sources":{"Foo.sol":{"content":"contract Foo {}"}},"settings":{"optimizer":{"enabled":false}}}`),
		ContractPath:    "Foo.sol",
		ContractName:    "Foo",
		LicenseCode:     "MIT",
	}

	job, err := ToJob(1, common.HexToAddress("0x1"), common.Hash{}, result)
	require.NoError(t, err)
	assert.Equal(t, "Foo.sol", job.ContractPath)
	assert.Equal(t, "Foo", job.ContractName)
	assert.Equal(t, "v0.8.19+commit.7dd6d404", job.Version)
	assert.Contains(t, job.Sources, "Foo.sol")
}

func TestToJob_MissingContractPathErrors(t *testing.T) {
	result := ProcessedEtherscanResult{
		Language:     "Solidity",
		JSONInput:    []byte(`{"language":"Solidity","sources":{"Foo.sol":{"content":"contract Foo {}"}}}`),
		ContractPath: "Bar.sol",
	}

	_, err := ToJob(1, common.HexToAddress("0x1"), common.Hash{}, result)
	require.ErrorIs(t, err, ErrMissingContractInJSON)
}
