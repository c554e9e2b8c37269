package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// DefaultModelPath is where the trained model artifact is stored
const DefaultModelPath = "models/element_model.json"

// ErrModelUnavailable means no usable model artifact could be loaded
var ErrModelUnavailable = errors.New("model unavailable")

// Save writes the forest to path, creating the directory if needed
func (f *Forest) Save(path string) error {
	if path == "" {
		path = DefaultModelPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode model: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write model: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace model: %w", err)
	}
	log.Printf("Model saved at %s (%d trees, holdout accuracy %.2f)", path, len(f.Trees), f.Accuracy)
	return nil
}

// Load reads a model artifact. Every failure wraps ErrModelUnavailable.
func Load(path string) (*Forest, error) {
	if path == "" {
		path = DefaultModelPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	var f Forest
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %v", ErrModelUnavailable, path, err)
	}
	if len(f.Trees) == 0 || len(f.Classes) == 0 || len(f.Features) == 0 {
		return nil, fmt.Errorf("%w: %s holds an empty model", ErrModelUnavailable, path)
	}
	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrModelUnavailable, path, err)
	}
	return &f, nil
}

// validate checks that every tree is a proper tree rooted at node 0 whose
// splits and leaves stay within the forest's features and classes
func (f *Forest) validate() error {
	for ti, t := range f.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		visited := make([]bool, len(t.Nodes))
		stack := []int{0}
		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if visited[i] {
				return fmt.Errorf("tree %d: node %d is reached twice", ti, i)
			}
			visited[i] = true

			n := t.Nodes[i]
			if n.Class >= 0 {
				if n.Class >= len(f.Classes) {
					return fmt.Errorf("tree %d: node %d has class %d of %d", ti, i, n.Class, len(f.Classes))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= len(f.Features) {
				return fmt.Errorf("tree %d: node %d splits on feature %d of %d", ti, i, n.Feature, len(f.Features))
			}
			for _, child := range []int{n.Left, n.Right} {
				if child < 0 || child >= len(t.Nodes) {
					return fmt.Errorf("tree %d: node %d points to missing node %d", ti, i, child)
				}
				stack = append(stack, child)
			}
		}
	}
	return nil
}
