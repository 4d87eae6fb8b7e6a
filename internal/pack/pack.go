// Package pack bundles multi-file results into a ZIP archive.
package pack

import (
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// Entry is one file of the archive.
type Entry struct {
	Name string
	Data []byte
}

// alreadyCompressed lists extensions stored without deflate.
var alreadyCompressed = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".zip": true,
}

// Zip writes entries to w in order. Duplicate names get a " (n)" suffix
// before the extension so that no entry shadows another.
func Zip(w io.Writer, entries []Entry) error {
	zw := zip.NewWriter(w)
	names := newNamer()
	modified := time.Now()
	for _, e := range entries {
		name := names.unique(e.Name)
		method := zip.Deflate
		if alreadyCompressed[strings.ToLower(path.Ext(name))] {
			method = zip.Store
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   method,
			Modified: modified,
		})
		if err != nil {
			zw.Close()
			return fmt.Errorf("zip entry %s: %w", name, err)
		}
		if _, err := fw.Write(e.Data); err != nil {
			zw.Close()
			return fmt.Errorf("zip entry %s: %w", name, err)
		}
	}
	return zw.Close()
}

type namer map[string]int

func newNamer() namer { return namer{} }

func (n namer) unique(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "file"
	}
	count := n[name]
	if count == 0 {
		n[name] = 1
		return name
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := count + 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if _, taken := n[candidate]; !taken {
			n[candidate] = 1
			n[name] = i
			return candidate
		}
	}
}
