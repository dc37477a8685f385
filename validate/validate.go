/*
Package validate checks shaped elements against a JSON Schema before they
are written.

The default schema requires all fields of each record with their declared
types. Validation is optional and considerably slows down a conversion.
*/
package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v2"

	"github.com/omniscale/osmcsv/element"
)

// Validator checks a single shaped element. Implementations return a
// *SchemaViolation for invalid elements.
type Validator interface {
	Validate(s *element.Shaped) error
}

// SchemaViolation describes the first field group of an element with
// errors. Errors maps field names (prefixed with the record index for list
// groups, e.g. "2.key") to error messages. Errors of a whole record are
// listed under the group name.
type SchemaViolation struct {
	Kind   element.Kind
	Group  string
	Errors map[string][]string
}

func (e *SchemaViolation) Error() string {
	detail, err := yaml.Marshal(e.Errors)
	if err != nil {
		detail = []byte(fmt.Sprint(e.Errors))
	}
	return fmt.Sprintf("element of type '%s' has the following errors in '%s':\n%s", e.Kind, e.Group, detail)
}

const schemaURL = "https://osmcsv.invalid/schema.json"

// Schema holds one compiled JSON Schema per element kind.
type Schema struct {
	kinds map[element.Kind]*kindSchema
}

type kindSchema struct {
	schema *jsonschema.Schema
	// groups in check order
	groups []string
}

// Groups returns the field groups of kind in check order.
func (s *Schema) Groups(kind element.Kind) []string {
	if ks, ok := s.kinds[kind]; ok {
		return ks.groups
	}
	return nil
}

//go:embed schema.yml
var defaultSchema []byte

// DefaultSchema returns the built-in schema.
func DefaultSchema() *Schema {
	s, err := ParseSchema(defaultSchema)
	if err != nil {
		panic(err)
	}
	return s
}

// ParseSchema parses a JSON Schema document in YAML or JSON. The top level
// keys node and way hold the subschemas of the element kinds.
func ParseSchema(b []byte) (*Schema, error) {
	var raw interface{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "parsing validation schema")
	}
	root, ok := jsonValue(raw).(map[string]interface{})
	if !ok {
		return nil, errors.New("validation schema is not a mapping")
	}
	doc, err := json.Marshal(root)
	if err != nil {
		return nil, errors.Wrap(err, "encoding validation schema")
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(doc)); err != nil {
		return nil, errors.Wrap(err, "loading validation schema")
	}

	s := &Schema{kinds: make(map[element.Kind]*kindSchema)}
	for name, kind := range element.KindValues {
		sub, ok := root[name]
		if !ok {
			continue
		}
		compiled, err := c.Compile(schemaURL + "#/" + name)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling validation schema for %s", name)
		}
		s.kinds[kind] = &kindSchema{schema: compiled, groups: groupOrder(sub)}
	}
	if len(s.kinds) == 0 {
		return nil, errors.New("validation schema has no element kinds")
	}
	return s, nil
}

func LoadSchema(r io.Reader) (*Schema, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading validation schema")
	}
	return ParseSchema(b)
}

// groupOrder returns the required properties of a kind schema, followed by
// the remaining properties in sorted order.
func groupOrder(sub interface{}) []string {
	m, _ := sub.(map[string]interface{})
	var groups []string
	seen := make(map[string]bool)
	required, _ := m["required"].([]interface{})
	for _, r := range required {
		if name, ok := r.(string); ok && !seen[name] {
			groups = append(groups, name)
			seen[name] = true
		}
	}
	props, _ := m["properties"].(map[string]interface{})
	var rest []string
	for name := range props {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(groups, rest...)
}

// jsonValue converts YAML decoded values into values of encoding/json.
func jsonValue(v interface{}) interface{} {
	switch v := v.(type) {
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(v))
		for k, val := range v {
			m[fmt.Sprint(k)] = jsonValue(val)
		}
		return m
	case []interface{}:
		l := make([]interface{}, len(v))
		for i, val := range v {
			l[i] = jsonValue(val)
		}
		return l
	}
	return v
}

type SchemaValidator struct {
	schema *Schema
}

func NewSchemaValidator(schema *Schema) *SchemaValidator {
	return &SchemaValidator{schema: schema}
}

// Validate checks s against the schema of its kind. Kinds without schema
// are valid.
func (v *SchemaValidator) Validate(s *element.Shaped) error {
	ks, ok := v.schema.kinds[s.Kind]
	if !ok {
		return nil
	}
	doc, err := jsonDocument(s.Document())
	if err != nil {
		return errors.Wrapf(err, "encoding %s", s.Kind)
	}

	err = ks.schema.Validate(doc)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return errors.Wrapf(err, "validating %s", s.Kind)
	}

	byGroup := make(map[string]map[string][]string)
	for _, leaf := range leafErrors(verr, nil) {
		group, field := splitLocation(leaf.InstanceLocation)
		if field == "" {
			field = group
		}
		if byGroup[group] == nil {
			byGroup[group] = make(map[string][]string)
		}
		byGroup[group][field] = append(byGroup[group][field], leaf.Message)
	}

	for _, g := range ks.groups {
		if errs, ok := byGroup[g]; ok {
			return &SchemaViolation{Kind: s.Kind, Group: g, Errors: errs}
		}
	}
	// errors outside of the known groups
	groups := make([]string, 0, len(byGroup))
	for g := range byGroup {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return &SchemaViolation{Kind: s.Kind, Group: groups[0], Errors: byGroup[groups[0]]}
}

// jsonDocument returns doc as decoded by encoding/json, the value form
// expected by jsonschema.
func jsonDocument(doc map[string]interface{}) (interface{}, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func leafErrors(e *jsonschema.ValidationError, leaves []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		return append(leaves, e)
	}
	for _, c := range e.Causes {
		leaves = leafErrors(c, leaves)
	}
	return leaves
}

var pointerUnescape = strings.NewReplacer("~1", "/", "~0", "~")

// splitLocation splits a JSON pointer like /node_tags/1/key into the group
// and the dotted field path within the group.
func splitLocation(ptr string) (group, field string) {
	parts := strings.Split(strings.TrimPrefix(ptr, "/"), "/")
	for i := range parts {
		parts[i] = pointerUnescape.Replace(parts[i])
	}
	return parts[0], strings.Join(parts[1:], ".")
}
