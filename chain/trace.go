package chain

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// parityTraceFrame is the relevant subset of a trace_transaction result entry.
type parityTraceFrame struct {
	Type   string `json:"type"`
	Action struct {
		CreationMethod string `json:"creationMethod"`
		Init           string `json:"init"`
	} `json:"action"`
	Result struct {
		Address string `json:"address"`
		Code    string `json:"code"`
	} `json:"result"`
}

// gethCallFrame is the relevant subset of debug_traceTransaction's callTracer result.
type gethCallFrame struct {
	Type  string          `json:"type"`
	Input string          `json:"input"`
	To    string          `json:"to"`
	Calls []gethCallFrame `json:"calls"`
}

// CreationBytecode returns the creation (init) bytecode observed on-chain for
// the deployment of contractAddr in the transaction txHash, using whichever
// trace method the endpoint advertises support for (spec §4.C).
func (p *Provider) CreationBytecode(ctx context.Context, txHash common.Hash, contractAddr common.Address) (string, error) {
	traceSupport := p.traceSupport()
	if traceSupport == "" {
		return "", ErrNoTraceSupport
	}

	var raw json.RawMessage
	err := p.withEndpoint(ctx, func(c *ethclient.Client) error {
		var innerErr error
		switch traceSupport {
		case "parity":
			innerErr = c.Client().CallContext(ctx, &raw, "trace_transaction", txHash.Hex())
		case "geth":
			innerErr = c.Client().CallContext(ctx, &raw, "debug_traceTransaction", txHash.Hex(),
				map[string]string{"tracer": "callTracer"})
		}
		return innerErr
	})
	if err != nil {
		return "", err
	}

	switch traceSupport {
	case "parity":
		return parseParityCreationTrace(raw, contractAddr)
	case "geth":
		return parseGethCreationTrace(raw, contractAddr)
	default:
		return "", ErrNoTraceSupport
	}
}

// FactoryChildren enumerates every nested CREATE/CREATE2 frame of txHash's
// trace, returning the deployed addresses of factory-created children (spec
// §4.H step 4). Returns ErrNoTraceSupport if the chain has no trace-capable
// endpoint configured.
func (p *Provider) FactoryChildren(ctx context.Context, txHash common.Hash) ([]common.Address, error) {
	traceSupport := p.traceSupport()
	if traceSupport == "" {
		return nil, ErrNoTraceSupport
	}

	var raw json.RawMessage
	err := p.withEndpoint(ctx, func(c *ethclient.Client) error {
		var innerErr error
		switch traceSupport {
		case "parity":
			innerErr = c.Client().CallContext(ctx, &raw, "trace_transaction", txHash.Hex())
		case "geth":
			innerErr = c.Client().CallContext(ctx, &raw, "debug_traceTransaction", txHash.Hex(),
				map[string]string{"tracer": "callTracer"})
		}
		return innerErr
	})
	if err != nil {
		return nil, err
	}

	switch traceSupport {
	case "parity":
		return parityFactoryChildren(raw)
	case "geth":
		return gethFactoryChildren(raw)
	default:
		return nil, ErrNoTraceSupport
	}
}

func parityFactoryChildren(raw json.RawMessage) ([]common.Address, error) {
	var frames []parityTraceFrame
	if err := json.Unmarshal(raw, &frames); err != nil {
		return nil, ErrMalformedTrace
	}

	var children []common.Address
	// The top-level deployment itself is also type=="create"; callers
	// already know that address from the receipt, so skip the first frame.
	for i, f := range frames {
		if f.Type == "create" && i > 0 && f.Result.Address != "" {
			children = append(children, common.HexToAddress(f.Result.Address))
		}
	}
	return children, nil
}

func gethFactoryChildren(raw json.RawMessage) ([]common.Address, error) {
	var root gethCallFrame
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, ErrMalformedTrace
	}

	var children []common.Address
	var walk func(f gethCallFrame, depth int)
	walk = func(f gethCallFrame, depth int) {
		if (f.Type == "CREATE" || f.Type == "CREATE2") && depth > 0 && f.To != "" {
			children = append(children, common.HexToAddress(f.To))
		}
		for _, c := range f.Calls {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return children, nil
}

// traceSupport reports which trace flavor ("parity", "geth", or "") this
// chain's configured endpoints advertise. The first non-empty TraceSupport
// among configured endpoints wins; mixed-support chains are not modeled.
func (p *Provider) traceSupport() string {
	for _, e := range p.chain.RPC {
		if e.TraceSupport != "" {
			return e.TraceSupport
		}
	}
	return ""
}

func parseParityCreationTrace(raw json.RawMessage, contractAddr common.Address) (string, error) {
	var frames []parityTraceFrame
	if err := json.Unmarshal(raw, &frames); err != nil {
		return "", ErrMalformedTrace
	}

	want := strings.ToLower(contractAddr.Hex())
	for _, f := range frames {
		if f.Type != "create" {
			continue
		}
		if strings.ToLower(f.Result.Address) == want {
			return f.Action.Init, nil
		}
	}
	return "", ErrNoCreateTrace
}

func parseGethCreationTrace(raw json.RawMessage, contractAddr common.Address) (string, error) {
	var root gethCallFrame
	if err := json.Unmarshal(raw, &root); err != nil {
		return "", ErrMalformedTrace
	}

	want := strings.ToLower(contractAddr.Hex())
	var found string
	var walk func(f gethCallFrame)
	walk = func(f gethCallFrame) {
		if (f.Type == "CREATE" || f.Type == "CREATE2") && strings.ToLower(f.To) == want {
			found = f.Input
		}
		for _, c := range f.Calls {
			walk(c)
		}
	}
	walk(root)

	if found == "" {
		return "", ErrNoCreateTrace
	}
	return found, nil
}
