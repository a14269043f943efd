package forensics

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed signatures.yml
var defaultSignatures []byte

// Signatures lists the tool names that mark an image as generated or edited.
type Signatures struct {
	Generators []string `yaml:"generators"`
	Editors    []string `yaml:"editors"`
}

func DefaultSignatures() *Signatures {
	s, err := ParseSignatures(defaultSignatures)
	if err != nil {
		panic(fmt.Sprintf("embedded signatures are invalid: %v", err))
	}
	return s
}

// LoadSignatures reads signatures from path, or returns the embedded defaults
// when path is empty.
func LoadSignatures(path string) (*Signatures, error) {
	if path == "" {
		return DefaultSignatures(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signatures: %w", err)
	}
	return ParseSignatures(data)
}

func ParseSignatures(data []byte) (*Signatures, error) {
	var s Signatures
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse signatures: %w", err)
	}
	if len(s.Generators) == 0 && len(s.Editors) == 0 {
		return nil, fmt.Errorf("signatures define no tools")
	}
	return &s, nil
}

// match reports whether blob mentions any of the names, ignoring case.
func match(blob string, names []string) bool {
	lower := strings.ToLower(blob)
	for _, n := range names {
		if n = strings.ToLower(strings.TrimSpace(n)); n != "" && strings.Contains(lower, n) {
			return true
		}
	}
	return false
}
