package dataset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"crisis-monitor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func xlsxFixture(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestLoad_CSV(t *testing.T) {
	data := []byte("\xef\xbb\xbfautor,comentario\nana,\"Péssimo, não volto\"\nbeto,Adorei\n")

	comments, err := Load(data, "export.csv", "comentario")
	require.NoError(t, err)
	assert.Equal(t, []models.Comment{
		{ID: 1, Row: 2, Text: "Péssimo, não volto"},
		{ID: 2, Row: 3, Text: "Adorei"},
	}, comments)
}

func TestLoad_XLSX(t *testing.T) {
	data := xlsxFixture(t, [][]interface{}{
		{"id", "Comentario"},
		{1, "Entrega atrasada"},
		{2, ""},
		{3, "Tudo certo"},
	})

	comments, err := Load(data, "export.xlsx", "comentario")
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "Entrega atrasada", comments[0].Text)
	assert.Equal(t, "", comments[1].Text)
	assert.Equal(t, "Tudo certo", comments[2].Text)
	assert.Equal(t, 4, comments[2].Row)
}

func TestLoad_SniffsWithoutExtension(t *testing.T) {
	xlsx := xlsxFixture(t, [][]interface{}{{"text"}, {"ruim"}})
	comments, err := Load(xlsx, "upload", "text")
	require.NoError(t, err)
	assert.Equal(t, "ruim", comments[0].Text)

	comments, err = Load([]byte("text\nbom\n"), "upload", "")
	require.NoError(t, err)
	assert.Equal(t, "bom", comments[0].Text)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		file   string
		column string
		want   error
	}{
		{name: "row wider than header", data: []byte("a,b\n1,2\n1,2,3\n"), file: "x.csv", column: "a", want: ErrMalformed},
		{name: "bad quote", data: []byte("a\n\"open\n"), file: "x.csv", column: "a", want: ErrMalformed},
		{name: "empty csv", data: []byte(""), file: "x.csv", column: "a", want: ErrMalformed},
		{name: "broken xlsx", data: []byte("PK not really a zip"), file: "x.xlsx", column: "a", want: ErrMalformed},
		{name: "missing column", data: []byte("a,b\n1,2\n"), file: "x.csv", column: "c", want: ErrColumnNotFound},
		{name: "ambiguous default column", data: []byte("a,b\n1,2\n"), file: "x.csv", column: "", want: ErrColumnNotFound},
		{name: "binary upload", data: []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}, file: "logo", column: "a", want: ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.data, tt.file, tt.column)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), err.Error())
		})
	}
}

func TestTable_Column(t *testing.T) {
	table := &Table{Header: []string{"Texto", "texto", "autor"}}

	idx, err := table.Column("texto")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	idx, err = table.Column("AUTOR")
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = table.Column("likes")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "Texto, texto, autor"))
}

func TestTable_CommentsShortRows(t *testing.T) {
	table := &Table{Header: []string{"a", "b"}, Rows: [][]string{{"x"}, {"y", "z"}}}
	comments := table.Comments(1)
	assert.Equal(t, "", comments[0].Text)
	assert.Equal(t, "z", comments[1].Text)
}

func TestLoad_ShortCSVRowsArePadded(t *testing.T) {
	data := []byte("autor,comentario,likes\na,muito ruim\nb,bom,3\nc\n")

	comments, err := Load(data, "x.csv", "comentario")
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "muito ruim", comments[0].Text)
	assert.Equal(t, "bom", comments[1].Text)
	assert.Equal(t, "", comments[2].Text)
	assert.Equal(t, 4, comments[2].Row)

	likes, err := Load(data, "x.csv", "likes")
	require.NoError(t, err)
	assert.Equal(t, []string{"", "3", ""}, []string{likes[0].Text, likes[1].Text, likes[2].Text})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "comments.csv")
	require.NoError(t, os.WriteFile(path, []byte("comment\nfirst\nsecond\n"), 0o600))

	comments, err := LoadFile(path, "comment")
	require.NoError(t, err)
	assert.Len(t, comments, 2)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.csv"), "comment")
	assert.Error(t, err)
}
