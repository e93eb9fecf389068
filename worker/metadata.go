package worker

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/txpull/sourcecheck/compilers"
)

// solcMetadata is the subset of the solc/vyper metadata JSON (the standard
// "metadata.json" embedded via CBOR auxdata) a KindMetadata job needs to
// rebuild a Compilation: which compiler, which settings, and which file is
// the verification target.
type solcMetadata struct {
	Language string `json:"language"`
	Compiler struct {
		Version string `json:"version"`
	} `json:"compiler"`
	Settings struct {
		CompilationTarget map[string]string      `json:"compilationTarget"`
		Optimizer         map[string]interface{} `json:"optimizer"`
		EVMVersion        string                 `json:"evmVersion,omitempty"`
		Libraries         map[string]interface{} `json:"libraries,omitempty"`
		Remappings        []string               `json:"remappings,omitempty"`
	} `json:"settings"`
	Sources map[string]struct {
		Content string `json:"content,omitempty"`
	} `json:"sources"`
}

// buildCompilationFromMetadata parses metadata (the contract's solc/vyper
// metadata.json) and assembles the Compilation the Engine needs, filling
// missing source content from fetched (by the Chain Monitor, via IPFS) file
// bodies keyed by path.
func buildCompilationFromMetadata(metadata []byte, fetched map[string]string) (compilationOf, error) {
	var m solcMetadata
	if err := json.Unmarshal(metadata, &m); err != nil {
		return compilationOf{}, fmt.Errorf("parse metadata: %w", err)
	}

	if len(m.Settings.CompilationTarget) != 1 {
		return compilationOf{}, fmt.Errorf("metadata has %d compilation targets, want 1", len(m.Settings.CompilationTarget))
	}
	var contractPath, contractName string
	for p, n := range m.Settings.CompilationTarget {
		contractPath, contractName = p, n
	}

	sources := make(map[string]compilers.Source, len(m.Sources))
	for path, s := range m.Sources {
		if s.Content != "" {
			sources[path] = compilers.Source{Content: s.Content}
			continue
		}
		if body, ok := fetched[path]; ok {
			sources[path] = compilers.Source{Content: body}
			continue
		}
		return compilationOf{}, fmt.Errorf("missing_source: %s", path)
	}

	// extraSources is whatever was fetched alongside the contract but isn't
	// referenced by metadata.sources; solc 0.6.12/0.7.0's extra-file-input
	// bug (spec §4.D step 7) needs these included on retry.
	var extraSources map[string]compilers.Source
	for path, body := range fetched {
		if _, ok := m.Sources[path]; ok {
			continue
		}
		if extraSources == nil {
			extraSources = make(map[string]compilers.Source)
		}
		extraSources[path] = compilers.Source{Content: body}
	}

	settings := map[string]interface{}{}
	if m.Settings.Optimizer != nil {
		settings["optimizer"] = m.Settings.Optimizer
	}
	if m.Settings.EVMVersion != "" {
		settings["evmVersion"] = m.Settings.EVMVersion
	}
	if m.Settings.Libraries != nil {
		settings["libraries"] = m.Settings.Libraries
	}
	if len(m.Settings.Remappings) > 0 {
		settings["remappings"] = m.Settings.Remappings
	}

	language := compilers.LanguageSolidity
	if strings.EqualFold(m.Language, string(compilers.LanguageVyper)) {
		language = compilers.LanguageVyper
	}

	return compilationOf{
		language:     language,
		version:      m.Compiler.Version,
		sources:      sources,
		extraSources: extraSources,
		settings:     settings,
		contractPath: contractPath,
		contractName: contractName,
	}, nil
}

type compilationOf struct {
	language     compilers.Language
	version      string
	sources      map[string]compilers.Source
	extraSources map[string]compilers.Source
	settings     map[string]interface{}
	contractPath string
	contractName string
}
