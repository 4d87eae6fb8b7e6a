package pack

import (
	"bytes"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZip(t *testing.T) {
	entries := []Entry{
		{Name: "page-1.png", Data: []byte("one")},
		{Name: "page-1.png", Data: []byte("two")},
		{Name: "../../etc/part.pdf", Data: bytes.Repeat([]byte("pdf"), 100)},
		{Name: "", Data: []byte("anon")},
	}
	var buf bytes.Buffer
	require.NoError(t, Zip(&buf, entries))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 4)

	wantNames := []string{"page-1.png", "page-1 (2).png", "part.pdf", "file"}
	for i, f := range zr.File {
		assert.Equal(t, wantNames[i], f.Name)
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, entries[i].Data, data)
	}
	assert.Equal(t, zip.Store, zr.File[0].Method)
	assert.Equal(t, zip.Deflate, zr.File[2].Method)
}

func TestUniqueNames(t *testing.T) {
	n := newNamer()
	assert.Equal(t, "a.pdf", n.unique("a.pdf"))
	assert.Equal(t, "a (2).pdf", n.unique("a (2).pdf"))
	// the generated candidate is taken, so the next free suffix is used
	assert.Equal(t, "a (3).pdf", n.unique("a.pdf"))
	assert.Equal(t, "a (4).pdf", n.unique("a.pdf"))
}
