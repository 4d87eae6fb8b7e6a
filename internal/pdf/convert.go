package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// Compress rewrites the document with pdfcpu's optimizer: duplicate fonts
// and images are shared and unused objects are dropped.
func Compress(rs io.ReadSeeker, w io.Writer, password string) error {
	if err := rewind(rs); err != nil {
		return err
	}
	return wrap("optimize", pdfapi.Optimize(rs, w, newConfig(password)))
}

// Protect encrypts the document with AES-256. An empty ownerPW reuses
// userPW.
func Protect(rs io.ReadSeeker, w io.Writer, userPW, ownerPW string) error {
	if userPW == "" {
		return fmt.Errorf("protect: %w", ErrWrongPassword)
	}
	if ownerPW == "" {
		ownerPW = userPW
	}
	if err := rewind(rs); err != nil {
		return err
	}
	conf := newConfig("")
	conf.UserPW = userPW
	conf.OwnerPW = ownerPW
	conf.EncryptUsingAES = true
	conf.EncryptKeyLength = 256
	return wrap("encrypt", pdfapi.Encrypt(rs, w, conf))
}

// Unlock removes encryption using password.
func Unlock(rs io.ReadSeeker, w io.Writer, password string) error {
	if err := rewind(rs); err != nil {
		return err
	}
	return wrap("decrypt", pdfapi.Decrypt(rs, w, newConfig(password)))
}

// ImagesToPDF writes a document with one page per image, in order. Images
// other than PNG and JPEG are converted to PNG first.
func ImagesToPDF(ctx context.Context, images [][]byte, w io.Writer, progress Progress) error {
	if len(images) == 0 {
		return ErrNoInput
	}
	total := len(images) + 1
	readers := make([]io.Reader, 0, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := normalizeImage(img)
		if err != nil {
			return fmt.Errorf("image %d: %w", i+1, err)
		}
		readers = append(readers, bytes.NewReader(data))
		progress.report(i+1, total)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	imp := pdfcpu.DefaultImportConfig()
	if err := pdfapi.ImportImages(nil, w, readers, imp, newConfig("")); err != nil {
		return wrap("import images", err)
	}
	progress.report(total, total)
	return nil
}

// ExtractedImage is an image embedded in a document.
type ExtractedImage struct {
	Name     string
	FileType string
	Page     int // 0-based
	Data     []byte
}

// Filename returns a stable file name for the image.
func (e ExtractedImage) Filename() string {
	name := strings.TrimSuffix(e.Name, "."+e.FileType)
	if name == "" {
		name = "image"
	}
	return fmt.Sprintf("page%03d_%s.%s", e.Page+1, name, e.FileType)
}

// ExtractImages returns the images embedded in the pages at indices, or in
// every page when indices is empty, ordered by page.
func ExtractImages(rs io.ReadSeeker, indices []int, password string) ([]ExtractedImage, error) {
	var sel []string
	if len(indices) > 0 {
		count, err := PageCount(rs, password)
		if err != nil {
			return nil, err
		}
		if indices, err = CheckIndices(indices, count); err != nil {
			return nil, err
		}
		sel = selection(indices)
	}
	if err := rewind(rs); err != nil {
		return nil, err
	}
	pages, err := pdfapi.ExtractImagesRaw(rs, sel, newConfig(password))
	if err != nil {
		return nil, wrap("extract images", err)
	}

	type keyed struct {
		obj int
		img ExtractedImage
	}
	var all []keyed
	for _, m := range pages {
		for objNr, img := range m {
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("read image %d: %w", objNr, err)
			}
			all = append(all, keyed{obj: objNr, img: ExtractedImage{
				Name:     img.Name,
				FileType: img.FileType,
				Page:     img.PageNr - 1,
				Data:     data,
			}})
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].img.Page != all[j].img.Page {
			return all[i].img.Page < all[j].img.Page
		}
		return all[i].obj < all[j].obj
	})
	out := make([]ExtractedImage, len(all))
	for i, k := range all {
		out[i] = k.img
	}
	return out, nil
}
