package classifier

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed data/*.json
var builtin embed.FS

// QA is a curated question with its canned answer.
type QA struct {
	Category string `json:"category,omitempty"`
	Question string `json:"question"`
	Response string `json:"response"`
}

// Category groups curated HR questions and answers by topic.
type Category struct {
	Name      string   `json:"category"`
	Questions []string `json:"questions"`
	Responses []string `json:"responses"`
}

// Dataset holds the curated sets the fast matcher and the embedding
// classifier compare questions against.
type Dataset struct {
	Chitchat     []QA
	HRQuick      []QA
	HRCategories []Category
}

// HRExamples flattens the HR categories into question/answer pairs.
func (d *Dataset) HRExamples() []QA {
	var out []QA
	for _, c := range d.HRCategories {
		for i, q := range c.Questions {
			qa := QA{Category: c.Name, Question: q}
			if i < len(c.Responses) {
				qa.Response = c.Responses[i]
			}
			out = append(out, qa)
		}
	}
	return out
}

// DefaultDataset returns the curated sets compiled into the binary.
func DefaultDataset() (*Dataset, error) {
	return loadDataset(builtin, "data")
}

// LoadDataset reads the curated sets from dir. Files missing from dir are
// taken from the built-in sets.
func LoadDataset(dir string) (*Dataset, error) {
	if dir == "" {
		return DefaultDataset()
	}
	return loadDataset(overlayFS{dir: dir}, ".")
}

func loadDataset(fsys fs.FS, root string) (*Dataset, error) {
	var d Dataset
	if err := readJSON(fsys, root, "chitchat.json", &d.Chitchat); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, root, "hr_quick.json", &d.HRQuick); err != nil {
		return nil, err
	}
	if err := readJSON(fsys, root, "hr_training.json", &d.HRCategories); err != nil {
		return nil, err
	}
	return &d, nil
}

func readJSON(fsys fs.FS, root, name string, out any) error {
	data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(root, name)))
	if err != nil {
		return fmt.Errorf("classifier: read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("classifier: decode %s: %w", name, err)
	}
	return nil
}

// overlayFS serves files from dir and falls back to the built-in data.
type overlayFS struct{ dir string }

func (o overlayFS) Open(name string) (fs.File, error) {
	f, err := os.Open(filepath.Join(o.dir, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return builtin.Open("data/" + name)
	}
	return f, err
}
