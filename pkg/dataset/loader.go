package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/bradyops/brady/pkg/util"
)

// Read parses a dataset from JSON or YAML. The document is either a bare
// list of cases or a typed Dataset. name is used when the document does not
// carry its own.
func Read(data []byte, name string) (*Dataset, error) {
	raw, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	kind, err := util.PeekKind(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}

	ds := &Dataset{}
	switch kind {
	case "":
		var cases []TestCase
		if err := json.Unmarshal(raw, &cases); err != nil {
			return nil, fmt.Errorf("failed to parse dataset cases: %w", err)
		}
		ds.Kind = KindDataset
		ds.Cases = cases
	default:
		if err := util.DecodeTyped(raw, ds, KindDataset); err != nil {
			return nil, err
		}
	}

	ds.APIVersion = ds.GetAPIVersion()
	if ds.Metadata.Name == "" {
		ds.Metadata.Name = name
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}

	return ds, nil
}

// FromFile loads a dataset. Every failure is returned as *Error.
func FromFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	ds, err := Read(data, name)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}

	return ds, nil
}
