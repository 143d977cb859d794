package sites

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Loader reads a sites file. Files ending in .txt are read as one domain per
// line with '#' comments; everything else is parsed as YAML.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

func (l *Loader) Path() string { return l.filePath }

func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read sites file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(l.filePath), ".txt") {
		return parseText(data), nil
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse sites yaml: %w", err)
	}
	return f, nil
}

func parseText(data []byte) File {
	var f File
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		if line = strings.TrimSpace(line); line != "" {
			f.Sites = append(f.Sites, Site{Domain: line})
		}
	}
	return f
}
