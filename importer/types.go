package importer

// sourceCodeResult is one entry of Etherscan v2's getsourcecode "result"
// array, grounded on the teacher's scanners/types.go Result shape.
type sourceCodeResult struct {
	SourceCode           string `json:"SourceCode"`
	ABI                  string `json:"ABI"`
	ContractName         string `json:"ContractName"`
	CompilerVersion      string `json:"CompilerVersion"`
	OptimizationUsed     string `json:"OptimizationUsed"`
	Runs                 string `json:"Runs"`
	ConstructorArguments string `json:"ConstructorArguments"`
	EVMVersion           string `json:"EVMVersion"`
	Library              string `json:"Library"`
	LicenseType          string `json:"LicenseType"`
	Proxy                string `json:"Proxy"`
	Implementation       string `json:"Implementation"`
	SwarmSource          string `json:"SwarmSource"`
}

// getSourceCodeResponse is the envelope Etherscan wraps sourceCodeResult in.
type getSourceCodeResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Result  []sourceCodeResult `json:"result"`
}

// getSourceCodeErrorResponse is returned instead of getSourceCodeResponse
// when Etherscan reports "NOTOK" (teacher's scanners/bscscan.go handles the
// same textual-sniff ambiguity for BscScan's identical API shape).
type getSourceCodeErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// ProcessedEtherscanResult is the uniform shape all three SourceCode
// encodings (single-file, multi-file, standard-JSON) are normalized into,
// per spec §4.G step 4.
type ProcessedEtherscanResult struct {
	CompilerVersion string
	Language        string
	JSONInput       []byte // a standard-JSON compiler input, already unwrapped
	ContractPath    string
	ContractName    string
	LicenseCode     string
}

// standardJSONInput is the shape unwrapped from a `{{ ... }}`-wrapped SourceCode.
type standardJSONInput struct {
	Language string                 `json:"language"`
	Sources  map[string]jsonSource  `json:"sources"`
	Settings map[string]interface{} `json:"settings"`
}

type jsonSource struct {
	Content string `json:"content"`
}
