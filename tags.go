package socialgraph

import (
	"fmt"
	"reflect"
	"strings"
)

// entityMetadata holds the parsed `crud` tag information for a specific struct type.
// It is cached by the PersistenceManager to avoid reflection on every call.
type entityMetadata struct {
	// Label is the graph node label, defaulting to the struct's name.
	Label string
	// PKField is the name of the struct field marked as the primary key.
	PKField string
	// PKProp is the property name of the primary key in the database.
	PKProp string
	// IDField is the optional struct field that receives the node's ElementId.
	IDField string
	// Mappings maps struct field names to their corresponding database property names.
	Mappings map[string]string
}

// propertyFor returns the database property mapped to the given property or field name.
// Only mapped properties are accepted so caller-supplied keys never reach a query verbatim.
func (m *entityMetadata) propertyFor(name string) (string, bool) {
	for field, prop := range m.Mappings {
		if prop == name || field == name {
			return prop, true
		}
	}
	return "", false
}

// parseTagsFromType inspects a reflect.Type and extracts persistence metadata from `crud`
// struct tags. Recognized components:
//
//	pk               the field is the natural key used by MERGE and MATCH
//	property:<name>  the database property the field maps to
//	elementId        the field receives the node's ElementId and is never written
func parseTagsFromType(typ reflect.Type) (*entityMetadata, error) {
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type %s is not a struct", typ.Name())
	}

	meta := &entityMetadata{
		Label:    typ.Name(),
		Mappings: make(map[string]string),
	}

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("crud")
		if tag == "" {
			continue
		}

		parts := strings.Split(tag, ",")
		isPk := false
		isID := false
		propName := ""

		for _, part := range parts {
			switch {
			case part == "pk":
				isPk = true
			case part == "elementId":
				isID = true
			case strings.HasPrefix(part, "property:"):
				propName = strings.TrimPrefix(part, "property:")
			}
		}

		if isID {
			if field.Type.Kind() != reflect.String {
				return nil, fmt.Errorf("field %s tagged elementId must be a string", field.Name)
			}
			meta.IDField = field.Name
			continue
		}

		if propName == "" {
			return nil, fmt.Errorf("field %s is missing 'property' tag component", field.Name)
		}

		if isPk {
			meta.PKField = field.Name
			meta.PKProp = propName
		}
		meta.Mappings[field.Name] = propName
	}

	if meta.PKField == "" {
		return nil, fmt.Errorf("no primary key ('pk') tag defined for struct %s", typ.Name())
	}

	return meta, nil
}

// parseTags is a generic convenience wrapper around parseTagsFromType.
func parseTags[T any]() (*entityMetadata, error) {
	var instance T
	return parseTagsFromType(reflect.TypeOf(instance))
}
