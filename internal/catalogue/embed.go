package catalogue

import _ "embed"

//go:embed challenges.yaml
var defaultCatalogue []byte

// LoadDefault loads the embedded default catalogue shipped with the binary.
func LoadDefault() (*Catalogue, error) {
	return Load(defaultCatalogue)
}
