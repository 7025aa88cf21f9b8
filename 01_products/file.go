package products

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"shopee-shorts-pipeline/types"
)

// FileSource reads a curated product list from JSON or YAML
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Name() string { return "file" }

// Fetch keeps the file's order; ranks present in the file are ignored.
// Either a bare list or {products: [...]} is accepted.
func (f *FileSource) Fetch(_ context.Context, limit int) ([]types.Product, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, err
	}

	var wrapped struct {
		Products []types.Product `json:"products" yaml:"products"`
	}
	var list []types.Product

	switch strings.ToLower(filepath.Ext(f.path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &list); err != nil {
			if err2 := yaml.Unmarshal(data, &wrapped); err2 != nil {
				return nil, fmt.Errorf("parse %s: %w", f.path, err)
			}
			list = wrapped.Products
		}
	default:
		if err := json.Unmarshal(data, &list); err != nil {
			if err2 := json.Unmarshal(data, &wrapped); err2 != nil {
				return nil, fmt.Errorf("parse %s: %w", f.path, err)
			}
			list = wrapped.Products
		}
	}

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	for i := range list {
		list[i].Rank = i + 1
	}
	return list, nil
}
