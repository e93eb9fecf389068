package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/txpull/sourcecheck/options"
)

func TestAdaptInterval_BacksOffOnNoNewBlocks(t *testing.T) {
	cfg := options.Chain{
		BlockIntervalFactor: 2,
		BlockIntervalLower:  time.Second,
		BlockIntervalUpper:  time.Minute,
	}
	got := adaptInterval(5*time.Second, cfg, true)
	assert.Equal(t, 10*time.Second, got)
}

func TestAdaptInterval_SpeedsUpOnNewBlock(t *testing.T) {
	cfg := options.Chain{
		BlockIntervalFactor: 2,
		BlockIntervalLower:  time.Second,
		BlockIntervalUpper:  time.Minute,
	}
	got := adaptInterval(10*time.Second, cfg, false)
	assert.Equal(t, 5*time.Second, got)
}

func TestAdaptInterval_ClampsToUpper(t *testing.T) {
	cfg := options.Chain{
		BlockIntervalFactor: 2,
		BlockIntervalLower:  time.Second,
		BlockIntervalUpper:  30 * time.Second,
	}
	got := adaptInterval(20*time.Second, cfg, true)
	assert.Equal(t, 30*time.Second, got)
}

func TestAdaptInterval_ClampsToLower(t *testing.T) {
	cfg := options.Chain{
		BlockIntervalFactor: 2,
		BlockIntervalLower:  5 * time.Second,
		BlockIntervalUpper:  time.Minute,
	}
	got := adaptInterval(6*time.Second, cfg, false)
	assert.Equal(t, 5*time.Second, got)
}

func TestAdaptInterval_DefaultsFactorWhenUnset(t *testing.T) {
	cfg := options.Chain{}
	got := adaptInterval(10*time.Second, cfg, true)
	assert.Equal(t, 15*time.Second, got)
}

func TestNewSimilarityTrigger_PostsToEachServer(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	trigger := NewSimilarityTrigger([]string{srv.URL}, srv.Client(), 2, 10*time.Millisecond)
	addr := common.HexToAddress("0x0000000000000000000000000000000000000001")

	err := trigger(context.Background(), 1, addr)
	require.NoError(t, err)
	assert.Equal(t, "/v2/verify/similarity/1/"+addr.Hex(), gotPath)
}

func TestNewSimilarityTrigger_NoServersConfigured(t *testing.T) {
	trigger := NewSimilarityTrigger(nil, nil, 1, time.Millisecond)
	err := trigger(context.Background(), 1, common.Address{})
	require.Error(t, err)
}

func TestNewSimilarityTrigger_RetriesOnFailureThenGivesUp(t *testing.T) {
	var attempts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	trigger := NewSimilarityTrigger([]string{srv.URL}, srv.Client(), 2, time.Millisecond)
	err := trigger(context.Background(), 1, common.Address{})

	require.Error(t, err)
	assert.GreaterOrEqual(t, attempts, 3)
}
