package util

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// APIVersionV1Alpha1 is the only document version brady reads. Documents
// without an apiVersion are treated as this version.
const APIVersionV1Alpha1 = "brady/v1alpha1"

// TypeMeta is the kind/apiVersion header of a typed document.
type TypeMeta struct {
	APIVersion string `json:"apiVersion,omitempty"`
	Kind       string `json:"kind"`
}

type ObjectMeta struct {
	Name string `json:"name,omitempty"`
}

func (t *TypeMeta) GetAPIVersion() string {
	if t.APIVersion == "" {
		return APIVersionV1Alpha1
	}
	return t.APIVersion
}

func ValidateAPIVersion(version string) error {
	if version == "" || version == APIVersionV1Alpha1 {
		return nil
	}
	return fmt.Errorf("unknown apiVersion: '%s'", version)
}

// PeekKind returns the kind of a JSON object document. Anything that is not
// an object, such as a bare list of cases, has no kind.
func PeekKind(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if !bytes.HasPrefix(data, []byte("{")) {
		return "", nil
	}

	var head TypeMeta
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	return head.Kind, nil
}

// DecodeTyped unmarshals a JSON object into target after checking its kind
// and apiVersion. target must be a pointer.
func DecodeTyped(data []byte, target any, kind string) error {
	var head TypeMeta
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	if head.Kind != kind {
		return fmt.Errorf("cannot decode kind '%s' as kind '%s'", head.Kind, kind)
	}
	if err := ValidateAPIVersion(head.APIVersion); err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
