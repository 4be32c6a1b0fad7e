package source

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRows struct {
	columns []string
	values  [][]any
	pos     int
	err     error
	closed  bool
}

func (f *fakeRows) Close() { f.closed = true }
func (f *fakeRows) Err() error { return f.err }
func (f *fakeRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }
func (f *fakeRows) Conn() *pgx.Conn { return nil }
func (f *fakeRows) RawValues() [][]byte { return nil }
func (f *fakeRows) Scan(dest ...any) error { return errors.New("not supported") }

func (f *fakeRows) FieldDescriptions() []pgconn.FieldDescription {
	fds := make([]pgconn.FieldDescription, len(f.columns))
	for i, c := range f.columns {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return fds
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.values) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Values() ([]any, error) {
	return f.values[f.pos-1], nil
}

type fakeQuerier struct {
	rows  *fakeRows
	err   error
	query string
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.query = sql
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestReadAll_PreservesColumnOrder(t *testing.T) {
	rows := &fakeRows{
		columns: []string{"id", "name", "suscriber_count"},
		values: [][]any{
			{"UC1", "Veritasium", int64(10)},
			{"UC2", nil, nil},
		},
	}
	q := &fakeQuerier{rows: rows}

	got, err := NewReader(q).ReadAll(context.Background(), ChannelQuery)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ChannelQuery, q.query)

	assert.Equal(t, []string{"id", "name", "suscriber_count"}, got[0].Columns())
	assert.Equal(t, "Veritasium", got[0].Get("name"))
	assert.Nil(t, got[1].Get("name"))
	_, ok := got[1].Lookup("name")
	assert.True(t, ok, "null column is still present")
	assert.True(t, rows.closed)
}

func TestReadAll_QueryError(t *testing.T) {
	q := &fakeQuerier{err: errors.New("connection refused")}

	_, err := NewReader(q).ReadAll(context.Background(), VideoQuery)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestReadAll_RowsError(t *testing.T) {
	rows := &fakeRows{columns: []string{"id"}, err: errors.New("broken pipe")}

	_, err := NewReader(&fakeQuerier{rows: rows}).ReadAll(context.Background(), VideoQuery)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken pipe")
}

func TestRow_SetAndClone(t *testing.T) {
	r := NewRow(Field{Name: "id", Value: "a"})
	c := r.Clone()
	c.Set("id", "b")
	c.Set("extra", 1)

	assert.Equal(t, "a", r.Get("id"))
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, []string{"id", "extra"}, c.Columns())
}
