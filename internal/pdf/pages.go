package pdf

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// PageRange is an inclusive range of 0-based page indices.
type PageRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (r PageRange) String() string {
	if r.From == r.To {
		return strconv.Itoa(r.From + 1)
	}
	return fmt.Sprintf("%d-%d", r.From+1, r.To+1)
}

// ParseRanges parses a 1-based page list such as "1-3,5,8-" against a
// document of count pages. An open end runs to the last page.
func ParseRanges(s string, count int) ([]PageRange, error) {
	var out []PageRange
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		from, to, isRange := strings.Cut(part, "-")
		a, err := parsePageNumber(from, 1)
		if err != nil {
			return nil, err
		}
		b := a
		if isRange {
			if b, err = parsePageNumber(to, count); err != nil {
				return nil, err
			}
		}
		r := PageRange{From: a - 1, To: b - 1}
		if err := r.validate(count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, ErrNoPagesSelected
	}
	return out, nil
}

func parsePageNumber(s string, empty int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return empty, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("page %q: %w", s, ErrPageOutOfRange)
	}
	return n, nil
}

func (r PageRange) validate(count int) error {
	if r.From < 0 || r.To >= count || r.From > r.To {
		return fmt.Errorf("range %d-%d of %d pages: %w", r.From, r.To, count, ErrPageOutOfRange)
	}
	return nil
}

// SplitEvery returns consecutive ranges of span pages covering count pages.
func SplitEvery(count, span int) []PageRange {
	if span < 1 {
		span = 1
	}
	var out []PageRange
	for from := 0; from < count; from += span {
		to := min(from+span-1, count-1)
		out = append(out, PageRange{From: from, To: to})
	}
	return out
}

// CheckIndices verifies that every index lies in [0, count) and returns them
// sorted with duplicates removed.
func CheckIndices(indices []int, count int) ([]int, error) {
	if len(indices) == 0 {
		return nil, ErrNoPagesSelected
	}
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= count {
			return nil, fmt.Errorf("page index %d of %d pages: %w", i, count, ErrPageOutOfRange)
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}

// selection converts 0-based indices to a pdfcpu page selection.
func selection(indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = strconv.Itoa(idx + 1)
	}
	return out
}

func allIndices(count int) []int {
	out := make([]int, count)
	for i := range out {
		out[i] = i
	}
	return out
}

// DeletePages removes the pages at indices. The selection must be a
// non-empty strict subset of the document; kept pages retain their order.
func DeletePages(rs io.ReadSeeker, w io.Writer, indices []int, password string) error {
	count, err := PageCount(rs, password)
	if err != nil {
		return err
	}
	sel, err := CheckIndices(indices, count)
	if err != nil {
		return err
	}
	if len(sel) == count {
		return ErrAllPagesSelected
	}
	if err := rewind(rs); err != nil {
		return err
	}
	return wrap("remove pages", pdfapi.RemovePages(rs, w, selection(sel), newConfig(password)))
}

// ExtractPages writes a document containing only the pages at indices, in
// document order.
func ExtractPages(rs io.ReadSeeker, w io.Writer, indices []int, password string) error {
	count, err := PageCount(rs, password)
	if err != nil {
		return err
	}
	sel, err := CheckIndices(indices, count)
	if err != nil {
		return err
	}
	if err := rewind(rs); err != nil {
		return err
	}
	return wrap("extract pages", pdfapi.Trim(rs, w, selection(sel), newConfig(password)))
}

// Split returns one document per range.
func Split(rs io.ReadSeeker, ranges []PageRange, password string) ([][]byte, error) {
	if len(ranges) == 0 {
		return nil, ErrNoPagesSelected
	}
	count, err := PageCount(rs, password)
	if err != nil {
		return nil, err
	}
	parts := make([][]byte, 0, len(ranges))
	for _, r := range ranges {
		if err := r.validate(count); err != nil {
			return nil, err
		}
		if err := rewind(rs); err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := pdfapi.Trim(rs, &buf, []string{r.String()}, newConfig(password)); err != nil {
			return nil, wrap("split "+r.String(), err)
		}
		parts = append(parts, buf.Bytes())
	}
	return parts, nil
}

// Rotate turns the pages at indices by degrees clockwise. An empty indices
// slice rotates every page. degrees must be a multiple of 90; a full turn
// copies the document unchanged.
func Rotate(rs io.ReadSeeker, w io.Writer, degrees int, indices []int, password string) error {
	if degrees%90 != 0 {
		return ErrInvalidRotation
	}
	count, err := PageCount(rs, password)
	if err != nil {
		return err
	}
	if len(indices) == 0 {
		indices = allIndices(count)
	}
	sel, err := CheckIndices(indices, count)
	if err != nil {
		return err
	}
	if err := rewind(rs); err != nil {
		return err
	}
	deg := normalizeDegrees(degrees)
	if deg == 0 {
		_, err := io.Copy(w, rs)
		return err
	}
	return wrap("rotate", pdfapi.Rotate(rs, w, deg, selection(sel), newConfig(password)))
}

func normalizeDegrees(d int) int {
	d %= 360
	if d < 0 {
		d += 360
	}
	return d
}
