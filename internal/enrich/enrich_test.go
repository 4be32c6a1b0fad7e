package enrich

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/ytindex/internal/source"
)

func writeCSV(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func commentRows(ids ...any) []source.Row {
	rows := make([]source.Row, len(ids))
	for i, id := range ids {
		rows[i] = source.NewRow(
			source.Field{Name: "id", Value: id},
			source.Field{Name: "text", Value: "hello"},
		)
	}
	return rows
}

func TestLeftJoin_ThreeRowsTwoMatches(t *testing.T) {
	table := NewSideTable("id", "comment_embedding")
	table.Add("1", "[1, 2]")
	table.Add("3", "[3, 4]")

	rows := commentRows(int64(1), int64(2), int64(3))
	joined := LeftJoin(rows, "id", table)

	require.Len(t, joined, 3)
	assert.Equal(t, "[1, 2]", joined[0].Get("comment_embedding"))
	v, ok := joined[1].Lookup("comment_embedding")
	assert.True(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, "[3, 4]", joined[2].Get("comment_embedding"))

	for i, r := range joined {
		assert.Equal(t, rows[i].Get("id"), r.Get("id"))
		assert.Equal(t, "hello", r.Get("text"))
	}
	assert.Equal(t, 2, Matched(rows, "id", table))

	_, ok = rows[0].Lookup("comment_embedding")
	assert.False(t, ok, "input rows must not be mutated")
}

func TestLeftJoin_SourceValueWins(t *testing.T) {
	table := NewSideTable("id", "sentiment_score")
	table.Add("1", "2")
	table.Add("2", "5")

	rows := []source.Row{
		source.NewRow(
			source.Field{Name: "id", Value: "1"},
			source.Field{Name: "sentiment_score", Value: int64(4)},
		),
		source.NewRow(
			source.Field{Name: "id", Value: "2"},
			source.Field{Name: "sentiment_score", Value: nil},
		),
	}
	joined := LeftJoin(rows, "id", table)

	assert.Equal(t, int64(4), joined[0].Get("sentiment_score"))
	assert.Equal(t, "5", joined[1].Get("sentiment_score"))
	assert.Equal(t, 2, joined[1].Len())
}

func TestLeftJoin_NilTable(t *testing.T) {
	rows := commentRows("a", "b")
	joined := LeftJoin(rows, "id", nil)
	assert.Equal(t, rows, joined)
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "123", JoinKey(123))
	assert.Equal(t, "123", JoinKey(int64(123)))
	assert.Equal(t, "123", JoinKey(123.0))
	assert.Equal(t, "123", JoinKey(" 123 "))
	assert.Equal(t, "123", JoinKey("123.0"))
	assert.Equal(t, "12.5", JoinKey(12.5))
	assert.Equal(t, "12.5", JoinKey("12.5"))
	assert.Equal(t, "dQw4w9WgXcQ", JoinKey("dQw4w9WgXcQ"))
	assert.Equal(t, "", JoinKey(nil))
}

func TestLoadSideTable_ConcatenatesAndDedups(t *testing.T) {
	dir := t.TempDir()
	p1 := writeCSV(t, dir, "part1.csv",
		"id,comment_embedding,extra\n1,\"[1, 2]\",x\n2,\"[2, 3]\",y\n")
	p2 := writeCSV(t, dir, "part2.csv",
		"extra,id,comment_embedding\nz,2,\"[9, 9]\"\nw,3,\n")

	table, err := LoadSideTable("id", []string{"comment_embedding"},
		p1, filepath.Join(dir, "missing.csv"), p2)
	require.NoError(t, err)

	assert.Equal(t, 3, table.Len())
	v, ok := table.Lookup(2)
	require.True(t, ok)
	assert.Equal(t, []any{"[2, 3]"}, v, "first file wins")

	v, ok = table.Lookup("3")
	require.True(t, ok)
	assert.Equal(t, []any{nil}, v, "empty cells are missing values")
}

func TestLoadSideTable_MissingKeyColumn(t *testing.T) {
	p := writeCSV(t, t.TempDir(), "bad.csv", "video_id,title_embedding\nv1,\"[1]\"\n")
	_, err := LoadSideTable("id", []string{"title_embedding"}, p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing key column "id"`)
}

func TestLoadSideTable_NoFiles(t *testing.T) {
	table, err := LoadSideTable("id", []string{"comment_embedding"})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, []string{"comment_embedding"}, table.Columns())
}
