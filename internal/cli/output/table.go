package output

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

// Tabular is implemented by values that choose their own table layout.
// Wide asks for the optional columns as well.
type Tabular interface {
	Table(wide bool) *Table
}

// TableFormatter formats data as an aligned table.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
}

// Format renders data. Tabular values and *Table render as columns, maps
// and structs as a KEY/VALUE listing and anything else on a single line.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case *Table:
		return v.RenderWithOptions(w, f.NoHeaders)
	case Tabular:
		return v.Table(f.Wide).RenderWithOptions(w, f.NoHeaders)
	}

	rv := reflect.Indirect(reflect.ValueOf(data))
	switch rv.Kind() {
	case reflect.Map, reflect.Struct:
		return keyValues(rv).RenderWithOptions(w, f.NoHeaders)
	default:
		_, err := fmt.Fprintln(w, FormatValue(data))
		return err
	}
}

// keyValues flattens a map or struct into a sorted KEY/VALUE table.
// Struct keys come from the json tag so the table and JSON output agree.
func keyValues(v reflect.Value) *Table {
	t := &Table{Headers: []string{"KEY", "VALUE"}}
	var pairs [][2]string

	switch v.Kind() {
	case reflect.Map:
		for _, k := range v.MapKeys() {
			pairs = append(pairs, [2]string{fmt.Sprint(k.Interface()), FormatValue(v.MapIndex(k).Interface())})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i][0] < pairs[j][0] })
	case reflect.Struct:
		typ := v.Type()
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			name := fieldName(field)
			if name == "" {
				continue
			}
			pairs = append(pairs, [2]string{name, FormatValue(v.Field(i).Interface())})
		}
	}

	for _, p := range pairs {
		t.AddRow(p[0], p[1])
	}
	return t
}

func fieldName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return ""
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return toSnakeCase(f.Name)
}

// FormatValue renders a single cell.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	case time.Time:
		if x.IsZero() {
			return "-"
		}
		return x.Local().Format(time.RFC3339)
	case fmt.Stringer:
		return x.String()
	case bool:
		if x {
			return "yes"
		}
		return "no"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "-"
		}
		return FormatValue(rv.Elem().Interface())
	case reflect.Map, reflect.Slice, reflect.Struct:
		if (rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && rv.Len() == 0 {
			return "-"
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Table is a simple column layout.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render writes the table with headers.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions writes the table, optionally without the header row.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// SetHeaders replaces the header row.
func (t *Table) SetHeaders(headers ...string) {
	t.Headers = headers
}
