package compilers

// NewVyperInput builds a standard-JSON input for vyper -f standard-json.
// Vyper's standard-JSON dialect has no outputSelection knob to force: it
// always emits bytecode, deployed bytecode and metadata for every contract.
func NewVyperInput(sources map[string]Source, settings map[string]interface{}) Input {
	return Input{
		Language: string(LanguageVyper),
		Sources:  sources,
		Settings: settings,
	}
}
