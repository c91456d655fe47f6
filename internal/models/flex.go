package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

var jsonNull = []byte("null")

// FlexString строковое поле, которое Freedcamp присылает то строкой, то числом.
// Set различает отсутствующее поле и присутствующее; Null означает явный null.
type FlexString struct {
	Value string
	Set   bool
	Null  bool
}

// UnmarshalJSON принимает строку, число или null.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	f.Set = true
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		f.Null = true
		f.Value = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &f.Value)
	}
	// число или bool храним в исходном текстовом виде
	f.Value = string(data)
	return nil
}

// MarshalJSON нужен для тестовых фикстур.
func (f FlexString) MarshalJSON() ([]byte, error) {
	if !f.Set || f.Null {
		return jsonNull, nil
	}
	return json.Marshal(f.Value)
}

// Present возвращает true, если поле пришло с непустым значением.
func (f FlexString) Present() bool {
	return f.Set && !f.Null && f.Value != ""
}

// Or возвращает значение или def, если значения нет.
func (f FlexString) Or(def string) string {
	if f.Present() {
		return f.Value
	}
	return def
}

// FlexInt целочисленное поле: число, числовая строка или null.
// Valid=false означает, что значение пришло, но не распарсилось.
type FlexInt struct {
	Value int64
	Set   bool
	Valid bool
}

// UnmarshalJSON никогда не возвращает ошибку на мусорных значениях,
// решение о том, что с ними делать, принимает нормализатор.
func (f *FlexInt) UnmarshalJSON(data []byte) error {
	f.Set = true
	f.Valid = false
	f.Value = 0

	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		return nil
	}

	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		raw = strings.TrimSpace(raw)
	}
	switch raw {
	case "true":
		f.Value, f.Valid = 1, true
		return nil
	case "false":
		f.Value, f.Valid = 0, true
		return nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		f.Value, f.Valid = n, true
		return nil
	}
	if fl, err := strconv.ParseFloat(raw, 64); err == nil {
		f.Value, f.Valid = int64(fl), true
	}
	return nil
}

// MarshalJSON нужен для тестовых фикстур.
func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.Set || !f.Valid {
		return jsonNull, nil
	}
	return []byte(strconv.FormatInt(f.Value, 10)), nil
}

// Int возвращает значение или def, если оно отсутствует или некорректно.
func (f FlexInt) Int(def int) int {
	if f.Set && f.Valid {
		return int(f.Value)
	}
	return def
}

// FlexBool булево поле: true/false, 0/1 или их строковые формы.
type FlexBool struct {
	Value bool
	Set   bool
}

// UnmarshalJSON трактует всё нераспознанное как false.
func (f *FlexBool) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonNull) {
		f.Set, f.Value = false, false
		return nil
	}
	f.Set = true
	raw := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		f.Value = true
	default:
		f.Value = false
	}
	return nil
}

// MarshalJSON нужен для тестовых фикстур.
func (f FlexBool) MarshalJSON() ([]byte, error) {
	if !f.Set {
		return jsonNull, nil
	}
	return json.Marshal(f.Value)
}

// Or возвращает значение или def, если поле не пришло.
func (f FlexBool) Or(def bool) bool {
	if f.Set {
		return f.Value
	}
	return def
}
