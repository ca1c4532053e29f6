// Package formdef describes how the voucher form is presented: heading,
// button labels, field labels, field order and the aircraft choices. The
// definition is YAML; a default ships embedded in the binary.
package formdef

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	TypeText   = "text"
	TypeDate   = "date"
	TypeSelect = "select"
)

const defaultPath = "definitions/voucher.yaml"

//go:embed definitions/voucher.yaml
var embedded embed.FS

type Option struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

type Field struct {
	Name        string   `yaml:"name"`
	Label       string   `yaml:"label"`
	Type        string   `yaml:"type"`
	Placeholder string   `yaml:"placeholder"`
	Options     []Option `yaml:"options"`
}

func (f Field) IsSelect() bool {
	return f.Type == TypeSelect
}

// OptionValues returns the option values in declaration order.
func (f Field) OptionValues() []string {
	values := make([]string, 0, len(f.Options))
	for _, opt := range f.Options {
		values = append(values, opt.Value)
	}
	return values
}

type Definition struct {
	Title           string  `yaml:"title"`
	Subtitle        string  `yaml:"subtitle"`
	SubmitLabel     string  `yaml:"submit_label"`
	SubmittingLabel string  `yaml:"submitting_label"`
	SeatsHeading    string  `yaml:"seats_heading"`
	Fields          []Field `yaml:"fields"`
}

// Field looks a field up by its form control name.
func (d *Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Default returns the embedded definition.
func Default() (*Definition, error) {
	data, err := embedded.ReadFile(defaultPath)
	if err != nil {
		return nil, fmt.Errorf("formdef: read embedded definition: %w", err)
	}
	return Parse(data, defaultPath)
}

// Load reads the definition at path, or the embedded one when path is empty.
// Every name in required must be defined exactly once and no other field
// may appear.
func Load(path string, required []string) (*Definition, error) {
	var (
		def *Definition
		err error
	)
	if strings.TrimSpace(path) == "" {
		def, err = Default()
	} else {
		var data []byte
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("formdef: read %s: %w", path, err)
		}
		def, err = Parse(data, path)
	}
	if err != nil {
		return nil, err
	}

	if err := def.Validate(required); err != nil {
		return nil, err
	}
	return def, nil
}

// Parse decodes a YAML definition. Unknown keys are rejected.
func Parse(data []byte, source string) (*Definition, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("formdef: %s is empty", source)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("formdef: parse %s: %w", source, err)
	}

	for i := range def.Fields {
		if def.Fields[i].Type == "" {
			def.Fields[i].Type = TypeText
		}
		if def.Fields[i].Label == "" {
			def.Fields[i].Label = def.Fields[i].Name
		}
		for j := range def.Fields[i].Options {
			if def.Fields[i].Options[j].Label == "" {
				def.Fields[i].Options[j].Label = def.Fields[i].Options[j].Value
			}
		}
	}
	return &def, nil
}

func (d *Definition) Validate(required []string) error {
	var errs []string

	if d.SubmitLabel == "" {
		errs = append(errs, "submit_label is required")
	}
	if d.SubmittingLabel == "" {
		errs = append(errs, "submitting_label is required")
	}

	wanted := make(map[string]bool, len(required))
	for _, name := range required {
		wanted[name] = true
	}

	seen := make(map[string]bool, len(d.Fields))
	for i, f := range d.Fields {
		switch {
		case f.Name == "":
			errs = append(errs, fmt.Sprintf("field %d has no name", i))
			continue
		case seen[f.Name]:
			errs = append(errs, fmt.Sprintf("field %q is defined twice", f.Name))
		case !wanted[f.Name]:
			errs = append(errs, fmt.Sprintf("field %q is not a form control", f.Name))
		}
		seen[f.Name] = true

		switch f.Type {
		case TypeText, TypeDate:
			if len(f.Options) > 0 {
				errs = append(errs, fmt.Sprintf("field %q has options but type %s", f.Name, f.Type))
			}
		case TypeSelect:
			if len(f.Options) == 0 {
				errs = append(errs, fmt.Sprintf("select field %q needs at least one option", f.Name))
			}
		default:
			errs = append(errs, fmt.Sprintf("field %q has unsupported type %q", f.Name, f.Type))
		}
	}

	for _, name := range required {
		if !seen[name] {
			errs = append(errs, fmt.Sprintf("field %q is missing", name))
		}
	}

	if len(errs) > 0 {
		msg := "formdef: invalid definition:\n"
		for i, e := range errs {
			msg += fmt.Sprintf("  %d. %s\n", i+1, e)
		}
		return errors.New(msg)
	}
	return nil
}
