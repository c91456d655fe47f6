package tools

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema подмножество JSON Schema, нужное для inputSchema инструментов.
type Schema struct {
	Type                 string             `json:"type,omitempty"`
	Description          string             `json:"description,omitempty"`
	Properties           map[string]*Schema `json:"properties,omitempty"`
	Required             []string           `json:"required,omitempty"`
	Default              any                `json:"default,omitempty"`
	Enum                 []string           `json:"enum,omitempty"`
	Items                *Schema            `json:"items,omitempty"`
	Format               string             `json:"format,omitempty"`
	Minimum              *int               `json:"minimum,omitempty"`
	Maximum              *int               `json:"maximum,omitempty"`
	AdditionalProperties *bool              `json:"additionalProperties,omitempty"`
}

var rawMessageType = reflect.TypeOf(json.RawMessage{})

// ParamsSchema строит схему объекта по структуре параметров. Имя свойства
// берется из тега json, описание из desc, значение по умолчанию из default.
// Обязательность, enum и границы выводятся из тега validate.
func ParamsSchema(params any) (*Schema, error) {
	t := reflect.TypeOf(params)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("params must be a struct, got %s", t)
	}
	s, err := objectSchema(t)
	if err != nil {
		return nil, err
	}
	closed := false
	s.AdditionalProperties = &closed
	return s, nil
}

func objectSchema(t reflect.Type) (*Schema, error) {
	s := &Schema{Type: "object", Properties: map[string]*Schema{}}
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}

		prop, err := typeSchema(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		prop.Description = f.Tag.Get("desc")
		if def := f.Tag.Get("default"); def != "" {
			v, err := parseDefault(f.Type, def)
			if err != nil {
				return nil, fmt.Errorf("field %s default: %w", f.Name, err)
			}
			prop.Default = v
		}

		for _, rule := range strings.Split(f.Tag.Get("validate"), ",") {
			key, arg, _ := strings.Cut(rule, "=")
			switch key {
			case "required":
				s.Required = append(s.Required, name)
			case "oneof":
				prop.Enum = strings.Fields(arg)
			case "min", "max":
				n, err := strconv.Atoi(arg)
				if err != nil || prop.Type != "integer" {
					continue
				}
				if key == "min" {
					prop.Minimum = &n
				} else {
					prop.Maximum = &n
				}
			case "date":
				prop.Format = "date"
			case "email":
				prop.Format = "email"
			case "dive":
				// правила после dive относятся к элементам массива
				if prop.Items != nil {
					applyItemRules(prop.Items, f.Tag.Get("validate"))
				}
			}
			if key == "dive" {
				break
			}
		}
		s.Properties[name] = prop
	}
	if len(s.Properties) == 0 {
		s.Properties = nil
	}
	return s, nil
}

func applyItemRules(items *Schema, tag string) {
	_, after, ok := strings.Cut(tag, "dive,")
	if !ok {
		return
	}
	for _, rule := range strings.Split(after, ",") {
		key, arg, _ := strings.Cut(rule, "=")
		if key == "oneof" {
			items.Enum = strings.Fields(arg)
		}
	}
}

func typeSchema(t reflect.Type) (*Schema, error) {
	if t == rawMessageType {
		return &Schema{}, nil
	}
	if t == idType {
		return &Schema{Type: "string"}, nil
	}
	switch t.Kind() {
	case reflect.Pointer:
		return typeSchema(t.Elem())
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		return &Schema{Type: "integer"}, nil
	case reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Slice:
		items, err := typeSchema(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.Struct:
		return objectSchema(t)
	default:
		return nil, fmt.Errorf("unsupported type %s", t)
	}
}

func parseDefault(t reflect.Type, value string) (any, error) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Bool:
		return strconv.ParseBool(value)
	case reflect.Int, reflect.Int32, reflect.Int64:
		return strconv.Atoi(value)
	default:
		return nil, fmt.Errorf("unsupported default for %s", t)
	}
}

// applyDefaults проставляет значения из тега default до разбора аргументов,
// так что явно переданные значения их перекрывают.
func applyDefaults(params any) error {
	v := reflect.ValueOf(params).Elem()
	t := v.Type()
	for i := range t.NumField() {
		f := t.Field(i)
		def := f.Tag.Get("default")
		if def == "" {
			continue
		}
		parsed, err := parseDefault(f.Type, def)
		if err != nil {
			return fmt.Errorf("field %s default: %w", f.Name, err)
		}
		fv := v.Field(i)
		pv := reflect.ValueOf(parsed)
		if f.Type.Kind() == reflect.Pointer {
			ptr := reflect.New(f.Type.Elem())
			ptr.Elem().Set(pv.Convert(f.Type.Elem()))
			fv.Set(ptr)
			continue
		}
		fv.Set(pv.Convert(f.Type))
	}
	return nil
}
