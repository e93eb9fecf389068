package compilers

// NewSolidityInput builds a standard-JSON input for solc. settings is the
// already-assembled "settings" object from the submitted metadata or
// standard-JSON payload; outputSelection is forced to include bytecode,
// deployedBytecode, metadata and immutableReferences regardless of what the
// caller supplied, since the Verification Engine needs all four.
func NewSolidityInput(sources map[string]Source, settings map[string]interface{}) Input {
	settings = withRequiredOutputSelection(settings)
	return Input{
		Language: string(LanguageSolidity),
		Sources:  sources,
		Settings: settings,
	}
}

// NewYulInput builds a standard-JSON input for solc's Yul frontend.
func NewYulInput(sources map[string]Source, settings map[string]interface{}) Input {
	settings = withRequiredOutputSelection(settings)
	return Input{
		Language: string(LanguageYul),
		Sources:  sources,
		Settings: settings,
	}
}

func withRequiredOutputSelection(settings map[string]interface{}) map[string]interface{} {
	if settings == nil {
		settings = map[string]interface{}{}
	}
	settings["outputSelection"] = map[string]interface{}{
		"*": map[string]interface{}{
			"*": []string{"abi", "evm.bytecode", "evm.deployedBytecode", "metadata"},
		},
	}
	return settings
}
