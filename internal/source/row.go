package source

// Field is one column of a relational row.
type Field struct {
	Name  string
	Value any
}

// Row keeps columns in projection order. Values are whatever the driver
// produced (nil for NULL), or strings when the row came from a flat file.
type Row struct {
	fields []Field
}

func NewRow(fields ...Field) Row {
	return Row{fields: append([]Field(nil), fields...)}
}

// Lookup returns the value of a column and whether the column exists.
func (r Row) Lookup(name string) (any, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Get returns the column value, or nil when the column is absent.
func (r Row) Get(name string) any {
	v, _ := r.Lookup(name)
	return v
}

// Set overwrites an existing column or appends a new one.
func (r *Row) Set(name string, value any) {
	for i := range r.fields {
		if r.fields[i].Name == name {
			r.fields[i].Value = value
			return
		}
	}
	r.fields = append(r.fields, Field{Name: name, Value: value})
}

func (r Row) Columns() []string {
	cols := make([]string, len(r.fields))
	for i, f := range r.fields {
		cols[i] = f.Name
	}
	return cols
}

func (r Row) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

func (r Row) Len() int { return len(r.fields) }

// Clone returns a row that shares nothing with r.
func (r Row) Clone() Row {
	return NewRow(r.fields...)
}
