package matching

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// SynonymTable groups skill name keywords that should be treated as the same
// technology family for lexical compatibility checks. Keys are group labels,
// values are the substrings that place a name in the group.
type SynonymTable map[string][]string

// DefaultSynonymTable returns the built-in keyword groups. Deployments with
// a different skill vocabulary override it with LoadSynonymTable.
func DefaultSynonymTable() SynonymTable {
	return SynonymTable{
		"python":           {"python", "django", "flask", "fastapi"},
		"react":            {"react", "reactjs", "next.js", "nextjs"},
		"javascript":       {"javascript", "js", "typescript", "ts"},
		"machine learning": {"ml", "machine learning", "deep learning", "ai"},
		"data":             {"data", "analytics", "analysis", "visualization"},
	}
}

// LoadSynonymTable reads a keyword table from a YAML file mapping group
// labels to keyword lists.
func LoadSynonymTable(path string) (SynonymTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read keyword table %s", path)
	}

	table := SynonymTable{}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrapf(err, "failed to parse keyword table %s", path)
	}
	if len(table) == 0 {
		return nil, errors.Errorf("keyword table %s is empty", path)
	}
	return table, nil
}

// SharedGroup reports whether both names fall into at least one common
// keyword group. Matching is case-insensitive substring containment of any
// group keyword in the name.
func (t SynonymTable) SharedGroup(a, b string) bool {
	a, b = normalizeName(a), normalizeName(b)
	for _, keywords := range t {
		if containsAny(a, keywords) && containsAny(b, keywords) {
			return true
		}
	}
	return false
}

// Compatible is the lexical compatibility test between a skill name and a
// need name: equal after normalization, substring containment in either
// direction, or membership in a shared keyword group.
func (t SynonymTable) Compatible(a, b string) bool {
	na, nb := normalizeName(a), normalizeName(b)
	if na == "" || nb == "" {
		return false
	}
	if strings.Contains(na, nb) || strings.Contains(nb, na) {
		return true
	}
	return t.SharedGroup(a, b)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(name string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(name, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
