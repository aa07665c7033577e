package matcher

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/thisisjab/docquery/fault"
)

type JSONConfig struct {
	// Fields are the top-level keys searched for terms. A term matches if
	// it occurs in any of them.
	Fields []string `yaml:"fields"`
}

// JSON treats documents as JSON objects and matches terms against selected
// string fields only. Missing fields never match.
type JSON struct {
	cfg JSONConfig
}

func NewJSON(cfg JSONConfig) (*JSON, error) {
	if len(cfg.Fields) == 0 {
		return nil, errors.New("json matcher requires at least one field")
	}

	return &JSON{cfg: cfg}, nil
}

func (m *JSON) Match(term, document string, ignoreCase bool) (bool, error) {
	data := make(map[string]any)

	if err := json.Unmarshal([]byte(document), &data); err != nil {
		return false, fault.New(fault.BadInputCode, "document is not a json object").WithOriginal(err)
	}

	for _, field := range m.cfg.Fields {
		val, ok := data[field]
		if !ok || val == nil {
			continue
		}

		text, isString := val.(string)
		if !isString {
			return false, fault.New(fault.BadInputCode, fmt.Sprintf("field %q is not a string", field))
		}

		if found, _ := (Substring{}).Match(term, text, ignoreCase); found {
			return true, nil
		}
	}

	return false, nil
}
