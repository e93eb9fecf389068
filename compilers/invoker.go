package compilers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// StandardJSONInvoker is the default Invoker: it resolves the pinned binary
// via a Resolver and pipes standard-JSON to it over stdin, exactly the way
// solc and vyper both accept it on --standard-json / -f standard-json.
type StandardJSONInvoker struct {
	resolver *Resolver
}

// NewInvoker builds a StandardJSONInvoker backed by resolver.
func NewInvoker(resolver *Resolver) *StandardJSONInvoker {
	return &StandardJSONInvoker{resolver: resolver}
}

func (i *StandardJSONInvoker) Compile(ctx context.Context, language Language, version string, input Input) (*Output, error) {
	binPath, err := i.resolver.Resolve(ctx, language, version)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("marshaling compiler input: %w", err)
	}

	args := []string{"--standard-json"}
	if language == LanguageVyper {
		args = []string{"-f", "standard-json"}
	}

	cmd := exec.CommandContext(ctx, binPath, args...)
	cmd.Stdin = bytes.NewReader(encoded)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// solc/vyper exit non-zero on both fatal errors (reported in stdout
		// JSON) and invocation errors (reported on stderr); fall through to
		// try parsing stdout before giving up.
		if stdout.Len() == 0 {
			zap.L().Error("compiler invocation failed",
				zap.String("language", string(language)),
				zap.String("version", version),
				zap.String("stderr", stderr.String()))
			return nil, fmt.Errorf("%w: %s", ErrCompilationFailed, stderr.String())
		}
	}

	var output Output
	if err := json.Unmarshal(stdout.Bytes(), &output); err != nil {
		return nil, fmt.Errorf("decoding compiler output: %w", err)
	}

	if output.HasFatalError() {
		return &output, fmt.Errorf("%w: %s", ErrCompilationFailed, output.Errors[0].Message)
	}

	return &output, nil
}
