package chain

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestHealth_BackoffCapsAt60Seconds(t *testing.T) {
	h := &health{}
	now := time.Now()

	for i := 0; i < 10; i++ {
		h.recordFailure(now)
	}

	assert.LessOrEqual(t, h.nextRetryTime.Sub(now), maxBackoff)
	assert.Equal(t, 10, h.consecutiveFailures)
}

func TestHealth_RecordSuccessResetsState(t *testing.T) {
	h := &health{}
	now := time.Now()
	h.recordFailure(now)
	assert.True(t, h.isOpen(now))

	h.recordSuccess()
	assert.Equal(t, 0, h.consecutiveFailures)
	assert.False(t, h.isOpen(time.Now()))
}

func TestParseGethCreationTrace_FindsNestedCreate(t *testing.T) {
	raw := []byte(`{
		"type": "CALL",
		"to": "0x1111111111111111111111111111111111111111",
		"calls": [
			{"type": "CREATE2", "to": "0x2222222222222222222222222222222222222222", "input": "0x600160020a"}
		]
	}`)

	bytecode, err := parseGethCreationTrace(raw, common.HexToAddress("0x2222222222222222222222222222222222222222"))
	assert.NoError(t, err)
	assert.Equal(t, "0x600160020a", bytecode)
}
