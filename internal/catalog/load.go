package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk representation of a catalog override.
//
//	extend: true
//	categories:
//	  - name: queue-url
//	    base_weight: 85
//	    patterns: ['queue[_/]?url\s*[=:]\s*["'']([^"''\n]+)["'']']
//	vocabulary:
//	  direct:
//	    - {keyword: queue, placeholder: "{{QUEUE_URL}}"}
//	  cascades:
//	    queue-url:
//	      - {keywords: [], placeholder: "{{QUEUE_URL}}"}
//
// With extend set, categories replace bundled ones of the same name and new ones are
// appended; direct entries are tried before the bundled ones. Without it the file is used
// as-is and an absent section falls back to the bundled table.
type File struct {
	Extend     bool            `yaml:"extend"`
	Categories []Category      `yaml:"categories"`
	Vocabulary *VocabularyFile `yaml:"vocabulary"`
}

// VocabularyFile is the vocabulary section of a catalog file.
type VocabularyFile struct {
	Direct   []KeywordPlaceholder     `yaml:"direct"`
	Cascades map[string][]KeywordRule `yaml:"cascades"`
}

// ReadFile parses a catalog file without compiling it.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}
	return &f, nil
}

// Build compiles the file into a catalog and vocabulary.
func (f *File) Build() (*Catalog, *Vocabulary, error) {
	categories := f.Categories
	if f.Extend {
		categories = mergeCategories(DefaultCategories(), f.Categories)
	} else if len(categories) == 0 {
		categories = DefaultCategories()
	}

	cat, err := Compile(categories)
	if err != nil {
		return nil, nil, err
	}

	direct := DefaultDirect()
	cascades := DefaultCascades()
	if f.Vocabulary != nil {
		if f.Extend {
			direct = append(append([]KeywordPlaceholder{}, f.Vocabulary.Direct...), direct...)
			for name, rules := range f.Vocabulary.Cascades {
				cascades[name] = rules
			}
		} else {
			if len(f.Vocabulary.Direct) > 0 {
				direct = f.Vocabulary.Direct
			}
			if len(f.Vocabulary.Cascades) > 0 {
				cascades = f.Vocabulary.Cascades
			}
		}
	}

	vocab, err := NewVocabulary(direct, cascades)
	if err != nil {
		return nil, nil, err
	}

	return cat, vocab, nil
}

// LoadFile reads and builds a catalog file. An empty path yields the bundled defaults.
func LoadFile(path string) (*Catalog, *Vocabulary, error) {
	if path == "" {
		return Default(), DefaultVocabulary(), nil
	}

	f, err := ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return f.Build()
}

func mergeCategories(base, overrides []Category) []Category {
	merged := make([]Category, 0, len(base)+len(overrides))
	index := make(map[string]int, len(base))
	for _, c := range base {
		index[c.Name] = len(merged)
		merged = append(merged, c)
	}
	for _, c := range overrides {
		if i, ok := index[c.Name]; ok {
			merged[i] = c
			continue
		}
		index[c.Name] = len(merged)
		merged = append(merged, c)
	}
	return merged
}
