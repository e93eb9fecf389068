package clients

import (
	"os"
	"strings"

	"github.com/txpull/sourcecheck/options"
)

// ResolveEndpointURL expands an options.Endpoint into the concrete URL to
// dial, substituting `{API_KEY}`/`{SUBDOMAIN}` templates from the named
// environment variables for the "ApiKey" endpoint shape described in spec §6.
// Plain and FetchRequest endpoints are returned as-is. FetchRequest's custom
// headers are not applied anywhere: NewEthClient dials the resolved URL only.
func ResolveEndpointURL(e options.Endpoint) string {
	url := e.URL
	if e.Type != "ApiKey" {
		return url
	}
	if e.APIKeyEnvName != "" {
		url = strings.ReplaceAll(url, "{API_KEY}", os.Getenv(e.APIKeyEnvName))
	}
	if e.SubDomainEnvName != "" {
		url = strings.ReplaceAll(url, "{SUBDOMAIN}", os.Getenv(e.SubDomainEnvName))
	}
	return url
}
