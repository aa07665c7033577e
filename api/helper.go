package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/thisisjab/docquery/fault"
)

type apiResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// readJson decodes a single request object such as evaluateRequest into dst.
// Problems are reported as fault.BadInputCode, with field metadata when a
// key is to blame.
func (s *server) readJson(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.MaxBodySize.Bytes()))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError
		var maxBytesError *http.MaxBytesError

		switch {
		case errors.As(err, &syntaxError):
			return fault.New(fault.BadInputCode, fmt.Sprintf("Request contains badly-formed JSON at character %d.", syntaxError.Offset))

		case errors.Is(err, io.ErrUnexpectedEOF):
			return fault.New(fault.BadInputCode, "Request contains badly-formed JSON.")

		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fault.New(fault.BadInputCode, "Request is invalid.").WithMetadata(fault.FieldErrorsMetadata{
					unmarshalTypeError.Field: []string{fmt.Sprintf("Expected %s.", describeJsonType(unmarshalTypeError.Type))},
				})
			}

			return fault.New(fault.BadInputCode, "Request must be a JSON object.")

		case errors.Is(err, io.EOF):
			return fault.New(fault.BadInputCode, fmt.Sprintf("Request cannot be empty. Expected a JSON object with keys: %s.", strings.Join(jsonKeys(dst), ", ")))

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			fieldName = strings.ReplaceAll(fieldName, "\"", "")

			return fault.New(fault.BadInputCode, "Request is invalid.").WithMetadata(fault.FieldErrorsMetadata{
				fieldName: []string{fmt.Sprintf("Key is unknown. Expected one of: %s.", strings.Join(jsonKeys(dst), ", "))},
			})

		case errors.As(err, &maxBytesError):
			return fault.New(fault.BadInputCode, fmt.Sprintf("Request must not be larger than %s, document included.", s.cfg.MaxBodySize.HR()))

		case errors.As(err, &invalidUnmarshalError):
			panic(err)

		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fault.New(fault.BadInputCode, "Request must only contain a single JSON object.")
	}

	return nil
}

// jsonKeys lists the keys a request struct accepts.
func jsonKeys(dst any) []string {
	t := reflect.TypeOf(dst)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	keys := make([]string, 0, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}

		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		keys = append(keys, name)
	}

	return keys
}

func describeJsonType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "an integer"
	default:
		return t.String()
	}
}

func (s *server) writeJson(w http.ResponseWriter, status int, data apiResponse, headers http.Header) error {
	js, err := json.Marshal(data)
	if err != nil {
		return err
	}

	js = append(js, '\n')
	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js) //nolint:errcheck

	return nil
}
