// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/ftalign/services/align/tree"
)

// maxTreeFileSize bounds tree documents read from disk.
const maxTreeFileSize = 64 << 20

var errTreeFileTooLarge = errors.New("tree file too large")

// loadTree reads and decorates a YAML tree of {label, children} nodes.
func loadTree(path string) (*tree.Tree[string], error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat tree %s: %w", path, err)
	}
	if info.Size() > maxTreeFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", errTreeFileTooLarge, path, info.Size(), maxTreeFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", path, err)
	}

	var root tree.Input[string]
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode tree %s: %w", path, err)
	}
	t, err := tree.Decorate(&root)
	if err != nil {
		return nil, fmt.Errorf("tree %s: %w", path, err)
	}
	return t, nil
}

func identity(s string) string { return s }
