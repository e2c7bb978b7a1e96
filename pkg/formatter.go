package lldapcli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/toon-format/toon-go"
)

// normalize round-trips a typed service result through JSON so every
// formatter works on plain maps and slices.
func normalize(data interface{}) (interface{}, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return generic, nil
}

// JSONFormatter outputs data as JSON
type JSONFormatter struct {
	pretty bool
}

// NewJSONFormatter creates a JSON formatter
func NewJSONFormatter(pretty bool) *JSONFormatter {
	return &JSONFormatter{pretty: pretty}
}

func (f *JSONFormatter) Format(data interface{}) (string, error) {
	var output []byte
	var err error
	if f.pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(output), nil
}

func (f *JSONFormatter) Name() string {
	return "json"
}

// TableFormatter renders a list of rows, or a single object, as an aligned
// text table.
type TableFormatter struct{}

// NewTableFormatter creates a table formatter
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

func (f *TableFormatter) Format(data interface{}) (string, error) {
	generic, err := normalize(data)
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	switch v := generic.(type) {
	case []interface{}:
		formatRowTable(w, v)
	case map[string]interface{}:
		formatFieldTable(w, v)
	case nil:
		fmt.Fprint(w, "(no results)\n")
	default:
		fmt.Fprintf(w, "%v\n", v)
	}

	w.Flush()
	return buf.String(), nil
}

func (f *TableFormatter) Name() string {
	return "table"
}

// TOONFormatter outputs data in TOON (Token-Oriented Object Notation),
// using the official toon-go library.
type TOONFormatter struct{}

// NewTOONFormatter creates a TOON formatter
func NewTOONFormatter() *TOONFormatter {
	return &TOONFormatter{}
}

func (f *TOONFormatter) Format(data interface{}) (string, error) {
	generic, err := normalize(data)
	if err != nil {
		return "", err
	}
	output, err := toon.MarshalString(generic)
	if err != nil {
		return "", fmt.Errorf("TOON encoding failed: %w", err)
	}
	return output, nil
}

func (f *TOONFormatter) Name() string {
	return "toon"
}

// DefaultFormatterRegistry manages available formatters
type DefaultFormatterRegistry struct {
	formatters map[string]Formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *DefaultFormatterRegistry {
	r := &DefaultFormatterRegistry{
		formatters: make(map[string]Formatter),
	}

	r.formatters["json"] = NewJSONFormatter(false)
	r.formatters["json-pretty"] = NewJSONFormatter(true)
	r.formatters["table"] = NewTableFormatter()
	r.formatters["toon"] = NewTOONFormatter()

	return r
}

func (r *DefaultFormatterRegistry) Register(name string, formatter Formatter) error {
	if _, exists := r.formatters[name]; exists {
		return fmt.Errorf("formatter '%s' already registered", name)
	}
	r.formatters[name] = formatter
	return nil
}

func (r *DefaultFormatterRegistry) Get(name string) (Formatter, error) {
	formatter, ok := r.formatters[name]
	if !ok {
		return nil, fmt.Errorf("formatter '%s' not found", name)
	}
	return formatter, nil
}

func (r *DefaultFormatterRegistry) List() []string {
	var names []string
	for name := range r.formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// formatRowTable renders a homogeneous slice of objects with one header row.
func formatRowTable(w *tabwriter.Writer, rows []interface{}) {
	if len(rows) == 0 {
		fmt.Fprint(w, "(no results)\n")
		return
	}

	fieldSet := make(map[string]bool)
	var objects []map[string]interface{}
	for _, item := range rows {
		if obj, ok := item.(map[string]interface{}); ok {
			objects = append(objects, obj)
			for key := range obj {
				fieldSet[key] = true
			}
		}
	}
	if len(objects) == 0 {
		for _, item := range rows {
			fmt.Fprintf(w, "%s\n", formatTableValue(item))
		}
		return
	}

	var fields []string
	for field := range fieldSet {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for i, field := range fields {
		if i > 0 {
			fmt.Fprint(w, "\t")
		}
		fmt.Fprint(w, strings.ToUpper(field))
	}
	fmt.Fprint(w, "\n")

	for _, obj := range objects {
		for i, field := range fields {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			fmt.Fprint(w, formatTableValue(obj[field]))
		}
		fmt.Fprint(w, "\n")
	}
}

// formatFieldTable renders a single object as FIELD/VALUE pairs.
func formatFieldTable(w *tabwriter.Writer, data map[string]interface{}) {
	var keys []string
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Fprint(w, "FIELD\tVALUE\n")
	for _, key := range keys {
		fmt.Fprintf(w, "%s\t%s\n", key, formatTableValue(data[key]))
	}
}

func formatTableValue(value interface{}) string {
	if value == nil {
		return "-"
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%.0f", v)
		}
		return fmt.Sprintf("%.2f", v)
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, formatTableValue(item))
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		var keys []string
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, formatTableValue(v[key])))
		}
		return strings.Join(parts, " ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
