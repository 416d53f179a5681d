package story

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/Gongadachandrasekhar1/youtube-automation-backend/internal/llm"
)

// ParseError is returned when a model reply cannot be turned into a valid
// Story. Raw holds the reply (or the extracted candidate) for diagnostics.
type ParseError struct {
	Reason string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse story: %s: %v", e.Reason, e.Err)
	}
	return "parse story: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func storyValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(fmt.Sprintf("registering notblank: %v", err))
		}
		if err := v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
			return Category(fl.Field().String()).Valid()
		}); err != nil {
			panic(fmt.Sprintf("registering category: %v", err))
		}
		validate = v
	})
	return validate
}

// Parse extracts the JSON object from a raw model reply and decodes it.
// It never returns a partial Story: on any failure the Story is nil and the
// error is a *ParseError.
func Parse(raw string) (*Story, error) {
	candidate, ok := llm.ExtractJSON(raw)
	if !ok {
		return nil, &ParseError{Reason: "no JSON object found in reply", Raw: raw}
	}
	return Decode([]byte(candidate))
}

// Decode strictly decodes and validates a JSON story. Duplicate tags are
// dropped, keeping the first occurrence.
func Decode(data []byte) (*Story, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var s Story
	if err := dec.Decode(&s); err != nil {
		return nil, &ParseError{Reason: "invalid JSON", Raw: string(data), Err: err}
	}
	if dec.More() {
		return nil, &ParseError{Reason: "trailing data after JSON object", Raw: string(data)}
	}

	if err := storyValidator().Struct(&s); err != nil {
		return nil, &ParseError{Reason: "story does not match schema", Raw: string(data), Err: describe(err)}
	}
	if err := checkSceneOrder(s.Scenes); err != nil {
		return nil, &ParseError{Reason: "story does not match schema", Raw: string(data), Err: err}
	}

	s.Tags = dedupe(s.Tags)
	return &s, nil
}

func checkSceneOrder(scenes []Scene) error {
	for i := 1; i < len(scenes); i++ {
		if scenes[i].SceneNumber <= scenes[i-1].SceneNumber {
			return fmt.Errorf("scene_number %d follows %d: scene numbers must be unique and increasing",
				scenes[i].SceneNumber, scenes[i-1].SceneNumber)
		}
	}
	return nil
}

// describe flattens validator errors into one readable error.
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Story.")
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

func dedupe(tags []string) []string {
	if tags == nil {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
