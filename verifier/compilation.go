package verifier

import (
	"context"
	"fmt"

	"github.com/txpull/sourcecheck/bytecode"
	"github.com/txpull/sourcecheck/compilers"
)

// SolidityCompilation is the Compilation implementer for solc inputs.
type SolidityCompilation struct {
	version      string
	sources      map[string]compilers.Source
	extraSources map[string]compilers.Source
	settings     map[string]interface{}
	contractPath string
	contractName string
}

// NewSolidityCompilation builds a Compilation for a named contract at
// contractPath (the sources map key) inside a multi-file input.
func NewSolidityCompilation(version, contractPath, contractName string, sources map[string]compilers.Source, settings map[string]interface{}) *SolidityCompilation {
	return NewSolidityCompilationWithExtraSources(version, contractPath, contractName, sources, nil, settings)
}

// NewSolidityCompilationWithExtraSources builds a Compilation whose primary
// compile attempt uses sources, but which can widen to sources ∪ extraSources
// on retry (spec §4.D step 7's extra-file-input-bug path). extraSources holds
// files available alongside the contract (e.g. sibling files fetched from
// IPFS) that metadata.sources did not list.
func NewSolidityCompilationWithExtraSources(version, contractPath, contractName string, sources, extraSources map[string]compilers.Source, settings map[string]interface{}) *SolidityCompilation {
	return &SolidityCompilation{
		version:      version,
		sources:      sources,
		extraSources: extraSources,
		settings:     settings,
		contractPath: contractPath,
		contractName: contractName,
	}
}

// AllSources returns sources ∪ extraSources, or nil if there is nothing
// beyond what sources already holds.
func (c *SolidityCompilation) AllSources() map[string]compilers.Source {
	if len(c.extraSources) == 0 {
		return nil
	}
	all := make(map[string]compilers.Source, len(c.sources)+len(c.extraSources))
	for k, v := range c.sources {
		all[k] = v
	}
	for k, v := range c.extraSources {
		all[k] = v
	}
	return all
}

// WithAllSources rebuilds this Compilation against a wider source set,
// targeting the same contract.
func (c *SolidityCompilation) WithAllSources(all map[string]compilers.Source) Compilation {
	return NewSolidityCompilation(c.version, c.contractPath, c.contractName, all, c.settings)
}

func (c *SolidityCompilation) Language() string { return string(compilers.LanguageSolidity) }
func (c *SolidityCompilation) Version() string  { return c.version }

func (c *SolidityCompilation) Compile(ctx context.Context, invoker compilers.Invoker) (*compilers.Output, error) {
	input := compilers.NewSolidityInput(c.sources, c.settings)
	return invoker.Compile(ctx, compilers.LanguageSolidity, c.version, input)
}

func (c *SolidityCompilation) item(out *compilers.Output) (*compilers.OutputItem, error) {
	byPath, ok := out.Contracts[c.contractPath]
	if !ok {
		return nil, fmt.Errorf("%s: contract_not_found", c.contractPath)
	}
	item, ok := byPath[c.contractName]
	if !ok {
		return nil, fmt.Errorf("%s:%s: contract_not_found", c.contractPath, c.contractName)
	}
	return &item, nil
}

func (c *SolidityCompilation) RuntimeBytecode(out *compilers.Output) (string, error) {
	item, err := c.item(out)
	if err != nil {
		return "", err
	}
	return item.EVM.DeployedBytecode.Object, nil
}

func (c *SolidityCompilation) CreationBytecode(out *compilers.Output) (string, error) {
	item, err := c.item(out)
	if err != nil {
		return "", err
	}
	return item.EVM.Bytecode.Object, nil
}

func (c *SolidityCompilation) ImmutableReferences(out *compilers.Output) []bytecode.ImmutableRange {
	item, err := c.item(out)
	if err != nil {
		return nil
	}
	return bytecode.ImmutableReferencesFromCompiler(item.EVM.DeployedBytecode.ImmutableRefs)
}

// VyperCompilation is the Compilation implementer for vyper inputs. Vyper
// has no separate creation/runtime split in its standard-JSON output the way
// solc does for link references, but shares the same wire envelope.
type VyperCompilation struct {
	version      string
	sources      map[string]compilers.Source
	settings     map[string]interface{}
	contractPath string
	contractName string
}

// NewVyperCompilation builds a Compilation for a Vyper contract.
func NewVyperCompilation(version, contractPath, contractName string, sources map[string]compilers.Source, settings map[string]interface{}) *VyperCompilation {
	return &VyperCompilation{
		version:      version,
		sources:      sources,
		settings:     settings,
		contractPath: contractPath,
		contractName: contractName,
	}
}

func (c *VyperCompilation) Language() string { return string(compilers.LanguageVyper) }
func (c *VyperCompilation) Version() string  { return c.version }

func (c *VyperCompilation) Compile(ctx context.Context, invoker compilers.Invoker) (*compilers.Output, error) {
	input := compilers.NewVyperInput(c.sources, c.settings)
	return invoker.Compile(ctx, compilers.LanguageVyper, c.version, input)
}

func (c *VyperCompilation) item(out *compilers.Output) (*compilers.OutputItem, error) {
	byPath, ok := out.Contracts[c.contractPath]
	if !ok {
		return nil, fmt.Errorf("%s: contract_not_found", c.contractPath)
	}
	item, ok := byPath[c.contractName]
	if !ok {
		return nil, fmt.Errorf("%s:%s: contract_not_found", c.contractPath, c.contractName)
	}
	return &item, nil
}

func (c *VyperCompilation) RuntimeBytecode(out *compilers.Output) (string, error) {
	item, err := c.item(out)
	if err != nil {
		return "", err
	}
	return item.EVM.DeployedBytecode.Object, nil
}

func (c *VyperCompilation) CreationBytecode(out *compilers.Output) (string, error) {
	item, err := c.item(out)
	if err != nil {
		return "", err
	}
	return item.EVM.Bytecode.Object, nil
}

// Vyper emits no immutableReferences map; immutables are modeled as plain
// constructor-initialized storage there, so the Engine never looks for them.
func (c *VyperCompilation) ImmutableReferences(_ *compilers.Output) []bytecode.ImmutableRange {
	return nil
}

// YulCompilation is the Compilation implementer for bare Yul objects
// compiled through solc's Yul frontend (used for some factory/proxy
// verifications where no high-level source is available).
type YulCompilation struct {
	version      string
	sources      map[string]compilers.Source
	settings     map[string]interface{}
	objectName   string
}

// NewYulCompilation builds a Compilation for a named Yul object.
func NewYulCompilation(version, objectName string, sources map[string]compilers.Source, settings map[string]interface{}) *YulCompilation {
	return &YulCompilation{version: version, sources: sources, settings: settings, objectName: objectName}
}

func (c *YulCompilation) Language() string { return string(compilers.LanguageYul) }
func (c *YulCompilation) Version() string  { return c.version }

func (c *YulCompilation) Compile(ctx context.Context, invoker compilers.Invoker) (*compilers.Output, error) {
	input := compilers.NewYulInput(c.sources, c.settings)
	return invoker.Compile(ctx, compilers.LanguageYul, c.version, input)
}

func (c *YulCompilation) item(out *compilers.Output) (*compilers.OutputItem, error) {
	for _, byPath := range out.Contracts {
		if item, ok := byPath[c.objectName]; ok {
			return &item, nil
		}
	}
	return nil, fmt.Errorf("%s: contract_not_found", c.objectName)
}

func (c *YulCompilation) RuntimeBytecode(out *compilers.Output) (string, error) {
	item, err := c.item(out)
	if err != nil {
		return "", err
	}
	return item.EVM.DeployedBytecode.Object, nil
}

func (c *YulCompilation) CreationBytecode(out *compilers.Output) (string, error) {
	item, err := c.item(out)
	if err != nil {
		return "", err
	}
	return item.EVM.Bytecode.Object, nil
}

func (c *YulCompilation) ImmutableReferences(_ *compilers.Output) []bytecode.ImmutableRange {
	return nil
}
