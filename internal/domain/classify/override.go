package classify

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ParseOverride decodes an override file. Unknown keys are rejected so a
// misspelled field does not silently fall back to the rules.
func ParseOverride(data []byte) (*Override, error) {
	var o Override
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil {
		if errors.Is(err, io.EOF) {
			return &o, nil
		}
		return nil, fmt.Errorf("parse override file: %w", err)
	}
	return &o, nil
}
