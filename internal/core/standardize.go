package core

// standardize.go holds the categorical lookup applied to text cells.
//
// A Standardizer maps known spellings of a category (matched case-insensitively
// after trimming) to one canonical value. Values that are not in the lookup
// pass through unchanged.
//
// Rule sets can be loaded from YAML:
//
//	rules:
//	  - match: ["PRVT", "Prvt"]
//	    replace: "Private School (includes Montessori, Homeschool, etc)"
//	  - match: ["Charter School"]
//	    replace: "Charter"

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// PrivateSchoolLabel is the canonical name for private school variants.
const PrivateSchoolLabel = "Private School (includes Montessori, Homeschool, etc)"

// StandardizationRule maps several spellings to one canonical value.
type StandardizationRule struct {
	Match   []string `yaml:"match"`
	Replace string   `yaml:"replace"`
}

// DefaultRules are the built-in school type standardizations.
var DefaultRules = []StandardizationRule{
	{Match: []string{"PRVT", "Prvt"}, Replace: PrivateSchoolLabel},
	{Match: []string{"Charter School"}, Replace: "Charter"},
}

// Standardizer applies a case-insensitive categorical lookup.
type Standardizer struct {
	lookup map[string]string
}

// NewStandardizer builds a Standardizer from rules.
// It rejects empty matches, conflicting matches, matches on EmptyText, and
// chains where a replacement is itself matched to a different value, so Apply
// is idempotent.
func NewStandardizer(rules []StandardizationRule) (*Standardizer, error) {
	lookup := make(map[string]string)
	for i, rule := range rules {
		replace := strings.TrimSpace(rule.Replace)
		if replace == "" {
			return nil, fmt.Errorf("rule %d: empty replacement", i+1)
		}
		if len(rule.Match) == 0 {
			return nil, fmt.Errorf("rule %d: no match values", i+1)
		}
		for _, m := range rule.Match {
			key := strings.ToLower(strings.TrimSpace(m))
			if key == "" {
				return nil, fmt.Errorf("rule %d: empty match value", i+1)
			}
			if key == strings.ToLower(EmptyText) {
				return nil, fmt.Errorf("rule %d: %q is reserved for missing values", i+1, m)
			}
			if prev, ok := lookup[key]; ok && prev != replace {
				return nil, fmt.Errorf("rule %d: %q already maps to %q", i+1, m, prev)
			}
			lookup[key] = replace
		}
	}

	for key, replace := range lookup {
		if target, ok := lookup[strings.ToLower(replace)]; ok && target != replace {
			return nil, fmt.Errorf("replacement %q for %q is itself mapped to %q", replace, key, target)
		}
	}

	return &Standardizer{lookup: lookup}, nil
}

// DefaultStandardizer returns the built-in rule set.
func DefaultStandardizer() *Standardizer {
	s, err := NewStandardizer(DefaultRules)
	if err != nil {
		panic(fmt.Sprintf("default standardization rules: %v", err))
	}
	return s
}

// LoadStandardizer reads a YAML rules file.
// An empty path returns the built-in rules.
func LoadStandardizer(path string) (*Standardizer, error) {
	if path == "" {
		return DefaultStandardizer(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseStandardizer(data)
}

// ParseStandardizer builds a Standardizer from YAML rule data.
func ParseStandardizer(data []byte) (*Standardizer, error) {
	var doc struct {
		Rules []StandardizationRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	return NewStandardizer(doc.Rules)
}

// Apply returns the canonical value for v, or v unchanged if it is not in the lookup.
// v is expected to be trimmed already.
func (s *Standardizer) Apply(v string) string {
	if s == nil {
		return v
	}
	if replace, ok := s.lookup[strings.ToLower(v)]; ok {
		return replace
	}
	return v
}

// Len returns the number of distinct spellings the standardizer recognises.
func (s *Standardizer) Len() int {
	if s == nil {
		return 0
	}
	return len(s.lookup)
}
