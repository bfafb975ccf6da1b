package cli

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sistemadual/docgen/pkg/docgen"
)

// readYAML decodes a YAML or JSON file into v. A path of "-" reads stdin.
func readYAML(path string, stdin io.Reader, v any) error {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r = f
	}
	if err := yaml.NewDecoder(r).Decode(v); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// loadContext reads a render context. An empty path yields an empty context.
func loadContext(path string, stdin io.Reader) (docgen.Data, error) {
	data := docgen.Data{}
	if path == "" {
		return data, nil
	}
	var m map[string]any
	if err := readYAML(path, stdin, &m); err != nil {
		return nil, err
	}
	for k, v := range m {
		data[k] = v
	}
	return data, nil
}
