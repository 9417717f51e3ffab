package logic

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed scripts/*.yaml
var scriptFS embed.FS

// Profile is the identity block every script starts with.
type Profile struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Greeting string `yaml:"greeting"`
}

type CluelessScript struct {
	Profile  `yaml:",inline"`
	Replies  []string `yaml:"replies"`
	Thinking []string `yaml:"thinking"`
}

type ScholarEntry struct {
	Question string   `yaml:"question"`
	Thinking []string `yaml:"thinking"`
	Answer   string   `yaml:"answer"`
}

type ScholarScript struct {
	Profile `yaml:",inline"`
	Entries []ScholarEntry `yaml:"entries"`
}

type EmpathScript struct {
	Profile `yaml:",inline"`
	Sayings []string `yaml:"sayings"`
	Rare    struct {
		Preludes   []string `yaml:"preludes"`
		Paragraphs []string `yaml:"paragraphs"`
	} `yaml:"rare"`
}

type IdentifierScript struct {
	Key     string   `yaml:"key"`
	Name    string   `yaml:"name"`
	Format  string   `yaml:"format"`
	Retries []string `yaml:"retries"`
}

type PrivateScript struct {
	Profile      `yaml:",inline"`
	Openers      []string           `yaml:"openers"`
	Closers      []string           `yaml:"closers"`
	Identifiers  []IdentifierScript `yaml:"identifiers"`
	NextPrefixes []string           `yaml:"next_prefixes"`
	Cheers       []string           `yaml:"cheers"`
	Tiers        [][]string         `yaml:"tiers"`
	Completions  []string           `yaml:"completions"`
}

// Rant is either a single reasoning line or a short sequence shown one
// line at a time.
type Rant struct {
	Lines    []string
	Sequence bool
}

// UnmarshalYAML accepts a scalar (single line) or a list of lines.
func (r *Rant) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		r.Lines = []string{node.Value}
		r.Sequence = false
		return nil
	case yaml.SequenceNode:
		var lines []string
		if err := node.Decode(&lines); err != nil {
			return err
		}
		r.Lines = lines
		r.Sequence = true
		return nil
	default:
		return fmt.Errorf("rant at line %d: expected string or list", node.Line)
	}
}

type VentingScript struct {
	Profile    `yaml:",inline"`
	Openers    []string `yaml:"openers"`
	Rants      []Rant   `yaml:"rants"`
	FinalVents []string `yaml:"final_vents"`
	Dismissals []string `yaml:"dismissals"`
}

// Scripts bundles the canned libraries of every personality.
type Scripts struct {
	Clueless CluelessScript
	Scholar  ScholarScript
	Empath   EmpathScript
	Private  PrivateScript
	Venting  VentingScript
}

// LoadScripts decodes the embedded script libraries.
func LoadScripts() (*Scripts, error) {
	var s Scripts
	files := []struct {
		name string
		out  any
	}{
		{"clueless", &s.Clueless},
		{"scholar", &s.Scholar},
		{"empath", &s.Empath},
		{"private", &s.Private},
		{"venting", &s.Venting},
	}
	for _, f := range files {
		if err := decodeScript(f.name, f.out); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

func decodeScript(name string, out any) error {
	raw, err := scriptFS.ReadFile("scripts/" + name + ".yaml")
	if err != nil {
		return fmt.Errorf("read script %s: %w", name, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode script %s: %w", name, err)
	}
	return nil
}
