// Package trust buckets evidence URLs into coarse domain-reputation tiers.
//
// The domain lists are data, not code: a default table is embedded from tiers.yml
// and an operator may replace it with a file of the same shape.
package trust

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tier is the reputation bucket of a domain. Its value is the score used by the
// confidence engine.
type Tier int

const (
	Low    Tier = 30
	Medium Tier = 70
	High   Tier = 100
)

func (t Tier) String() string {
	switch t {
	case High:
		return "HIGH"
	case Medium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// Score returns the numeric value of the tier.
func (t Tier) Score() float64 {
	return float64(t)
}

//go:embed tiers.yml
var defaultTiers []byte

type tierFile struct {
	High   []string `yaml:"high"`
	Medium []string `yaml:"medium"`
}

// Table maps URLs to tiers. It is immutable once built and safe for concurrent use.
type Table struct {
	high   []string
	medium []string
}

// Default returns the embedded table.
func Default() *Table {
	table, err := Parse(defaultTiers)
	if err != nil {
		panic(fmt.Sprintf("embedded trust tiers are invalid: %v", err))
	}
	return table
}

// Load reads a table from path. An empty path yields the embedded default.
func Load(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read trust tiers: %w", err)
	}

	return Parse(data)
}

// Parse builds a table from YAML with "high" and "medium" domain lists.
func Parse(data []byte) (*Table, error) {
	var raw tierFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse trust tiers: %w", err)
	}

	if len(raw.High) == 0 && len(raw.Medium) == 0 {
		return nil, fmt.Errorf("trust tiers define no domains")
	}

	return &Table{
		high:   normalize(raw.High),
		medium: normalize(raw.Medium),
	}, nil
}

// TierOf returns the tier of the domain in rawURL. High entries win over medium
// ones; unmatched URLs are Low.
func (t *Table) TierOf(rawURL string) Tier {
	u := strings.ToLower(rawURL)
	if u == "" {
		return Low
	}

	if containsAny(u, t.high) {
		return High
	}
	if containsAny(u, t.medium) {
		return Medium
	}
	return Low
}

// Score is shorthand for TierOf(rawURL).Score().
func (t *Table) Score(rawURL string) float64 {
	return t.TierOf(rawURL).Score()
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func normalize(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}
