package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-pdftools/internal/job"
	"go-pdftools/internal/overlay"
	"go-pdftools/internal/pack"
	"go-pdftools/internal/pdf"
	"go-pdftools/internal/render"
	"go-pdftools/internal/session"
	"go-pdftools/internal/utils"
)

// actionRequest carries the parameters of every tool. Each tool reads the
// fields it needs and ignores the rest.
type actionRequest struct {
	// File is the source PDF. Empty selects the first uploaded PDF.
	File string `json:"file,omitempty"`
	// Files selects and orders the inputs of merge and images-to-pdf.
	// Empty uses every file of the right kind in session order.
	Files    []string `json:"files,omitempty"`
	Password string   `json:"password,omitempty"`
	// Pages are 0-based page indices.
	Pages []int `json:"pages,omitempty"`

	// split
	Ranges string `json:"ranges,omitempty"`
	Every  int    `json:"every,omitempty"`

	// rotate
	Degrees int `json:"degrees,omitempty"`

	// protect
	UserPassword  string `json:"userPassword,omitempty"`
	OwnerPassword string `json:"ownerPassword,omitempty"`

	// watermark
	Watermark pdf.TextWatermark `json:"watermark"`

	// sign and stamp-text
	Image   string             `json:"image,omitempty"`
	Page    int                `json:"page"`
	Overlay overlay.Descriptor `json:"overlay"`
	Text    pdf.TextStamp      `json:"text"`

	// pdf-to-images
	Format  string  `json:"format,omitempty"`
	Scale   float64 `json:"scale,omitempty"`
	Quality int     `json:"quality,omitempty"`

	// fill-form
	Form json.RawMessage `json:"form,omitempty"`
}

// task is one tool invocation. Tools write the result to out and may change
// ext from the default ".pdf".
type task struct {
	ctx     context.Context
	job     *job.Job
	session *session.Session
	req     actionRequest
	out     bytes.Buffer
	ext     string
	source  string
	rect    *overlay.PageRect
}

type tool struct {
	run    func(*APIHandler, *task) error
	suffix string
}

var tools = map[string]tool{
	"merge":          {(*APIHandler).merge, "merged"},
	"split":          {(*APIHandler).split, "split"},
	"delete-pages":   {(*APIHandler).deletePages, "edited"},
	"rotate":         {(*APIHandler).rotate, "rotated"},
	"compress":       {(*APIHandler).compress, "compressed"},
	"protect":        {(*APIHandler).protect, "protected"},
	"unlock":         {(*APIHandler).unlock, "unlocked"},
	"watermark":      {(*APIHandler).watermark, "watermarked"},
	"sign":           {(*APIHandler).sign, "signed"},
	"stamp-text":     {(*APIHandler).stampText, "stamped"},
	"images-to-pdf":  {(*APIHandler).imagesToPDF, "images"},
	"pdf-to-images":  {(*APIHandler).pdfToImages, "pages"},
	"extract-images": {(*APIHandler).extractImages, "images"},
	"fill-form":      {(*APIHandler).fillForm, "filled"},
}

var outputContentTypes = map[string]string{
	".pdf": "application/pdf",
	".zip": "application/zip",
}

type actionResponse struct {
	DownloadURL string            `json:"downloadUrl"`
	Filename    string            `json:"filename"`
	Size        int               `json:"size"`
	Job         job.Event         `json:"job"`
	Placement   *overlay.PageRect `json:"placement,omitempty"`
}

// RunAction godoc
// @Summary      Run a PDF tool
// @Description  Runs one tool on the session files and returns a download URL. Tools: merge, split, delete-pages, rotate, compress, protect, unlock, watermark, sign, stamp-text, images-to-pdf, pdf-to-images, extract-images, fill-form. Only one tool or preview runs per session at a time; follow progress on /job/events and cancel with DELETE /job.
// @Tags         actions
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string         true  "Session ID"
// @Param        tool       path  string         true  "Tool name"
// @Param        request    body  actionRequest  true  "Tool parameters"
// @Success      200  {object}  actionResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse  "Wrong or missing password"
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse  "Another job is running, or the job was canceled"
// @Failure      500  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/actions/{tool} [post]
func (h *APIHandler) RunAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	name := chi.URLParam(r, "tool")
	t, ok := tools[name]
	if !ok {
		h.failErr(w, r, s, fmt.Errorf("%w: %s", errUnknownTool, name))
		return
	}

	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.failErr(w, r, s, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	j, ctx, err := s.StartJob(r.Context(), name)
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}
	log := h.Logger.WithField("session", s.ID).WithField("tool", name).WithField("job", j.ID)
	log.Info("job started")

	tk := &task{ctx: ctx, job: j, session: s, req: req, ext: ".pdf"}
	out, err := h.runTool(t, tk)
	j.Finish(err)
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}
	s.AddOutput(out)
	log.WithField("output", out.Filename).Info("job done")

	writeJSON(w, http.StatusOK, actionResponse{
		DownloadURL: fmt.Sprintf("/api/sessions/%s/outputs/%s", s.ID, out.Filename),
		Filename:    out.DownloadName,
		Size:        tk.out.Len(),
		Job:         j.Snapshot(),
		Placement:   tk.rect,
	})
}

// runTool runs t and stores its result in the output directory. Nothing is
// stored when the tool fails or the job is canceled.
func (h *APIHandler) runTool(t tool, tk *task) (session.Output, error) {
	if err := t.run(h, tk); err != nil {
		return session.Output{}, err
	}
	if err := tk.ctx.Err(); err != nil {
		return session.Output{}, err
	}
	filename := fmt.Sprintf("%s-%s%s", t.suffix, utils.GenerateUUID(), tk.ext)
	path := filepath.Join(h.Config.OutputDir, filename)
	if err := os.WriteFile(path, tk.out.Bytes(), 0o644); err != nil {
		return session.Output{}, err
	}
	return session.Output{
		Filename:     filename,
		Path:         path,
		ContentType:  outputContentTypes[tk.ext],
		DownloadName: utils.DownloadName(tk.source, t.suffix, tk.ext),
	}, nil
}

// pdfSource opens the requested source PDF.
func (tk *task) pdfSource() (*bytes.Reader, error) {
	var f session.File
	if tk.req.File != "" {
		var err error
		if f, err = tk.session.GetFile(tk.req.File, session.KindPDF); err != nil {
			return nil, err
		}
	} else {
		files := tk.session.FilesOfKind(session.KindPDF)
		if len(files) == 0 {
			return nil, pdf.ErrNoInput
		}
		f = files[0]
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	tk.source = f.Name
	return bytes.NewReader(data), nil
}

// inputs returns the selected files of kind in order.
func (tk *task) inputs(kind session.FileKind) ([]session.File, error) {
	var files []session.File
	if len(tk.req.Files) == 0 {
		files = tk.session.FilesOfKind(kind)
	} else {
		for _, id := range tk.req.Files {
			f, err := tk.session.GetFile(id, kind)
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return nil, pdf.ErrNoInput
	}
	tk.source = files[0].Name
	return files, nil
}

// readAll reads files in order, checking ctx between files.
func (tk *task) readAll(files []session.File) ([][]byte, error) {
	out := make([][]byte, 0, len(files))
	for _, f := range files {
		if err := tk.ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}

// zip packs entries into the output.
func (tk *task) zip(entries []pack.Entry) error {
	tk.ext = ".zip"
	return pack.Zip(&tk.out, entries)
}

func (h *APIHandler) merge(tk *task) error {
	files, err := tk.inputs(session.KindPDF)
	if err != nil {
		return err
	}
	data, err := tk.readAll(files)
	if err != nil {
		return err
	}
	inputs := make([]io.ReadSeeker, len(data))
	for i, d := range data {
		inputs[i] = bytes.NewReader(d)
	}
	return pdf.Merge(tk.ctx, inputs, &tk.out, tk.job.Reporter("merge"))
}

func (h *APIHandler) split(tk *task) error {
	rs, err := tk.pdfSource()
	if err != nil {
		return err
	}
	count, err := pdf.PageCount(rs, tk.req.Password)
	if err != nil {
		return err
	}
	ranges := pdf.SplitEvery(count, tk.req.Every)
	if strings.TrimSpace(tk.req.Ranges) != "" {
		if ranges, err = pdf.ParseRanges(tk.req.Ranges, count); err != nil {
			return err
		}
	}
	parts, err := pdf.Split(rs, ranges, tk.req.Password)
	if err != nil {
		return err
	}
	tk.job.Report("split", len(parts), len(parts))
	if len(parts) == 1 {
		_, err := tk.out.Write(parts[0])
		return err
	}
	base := utils.Stem(tk.source)
	entries := make([]pack.Entry, len(parts))
	for i, part := range parts {
		entries[i] = pack.Entry{Name: fmt.Sprintf("%s-%s.pdf", base, ranges[i]), Data: part}
	}
	return tk.zip(entries)
}

func (h *APIHandler) deletePages(tk *task) error {
	rs, err := tk.pdfSource()
	if err != nil {
		return err
	}
	return pdf.DeletePages(rs, &tk.out, tk.req.Pages, tk.req.Password)
}

func (h *APIHandler) rotate(tk *task) error {
	rs, err := tk.pdfSource()
	if err != nil {
		return err
	}
	return pdf.Rotate(rs, &tk.out, tk.req.Degrees, tk.req.Pages, tk.req.Password)
}

func (h *APIHandler) compress(tk *task) error {
	rs, err := tk.pdfSource()
	if err != nil {
		return err
	}
	return pdf.Compress(rs, &tk.out, tk.req.Password)
}

func (h *APIHandler) protect(tk *task) error {
	rs, err := tk.pdfSource()
	if err != nil {
		return err
	}
	return pdf.Protect(rs, &tk.out, tk.req.UserPassword, tk.req.OwnerPassword)
}

func (h *APIHandler) unlock(tk *task) error {
	rs, err := tk.pdfSource()
	if err != nil {
		return err
	}
	return pdf.Unlock(rs, &tk.out, tk.req.Password)
}

func (h *APIHandler) watermark(tk *task) error {
	rs, err := tk.pdfSource()
	if err != nil {
		return err
	}
	return pdf.Watermark(rs, &tk.out, tk.req.Watermark, tk.req.Pages, tk.req.Password)
}

func (h *APIHandler) sign(tk *task) error {
	rs, err := tk.pdfSource()
	if err != nil {
		return err
	}
	var img session.File
	if tk.req.Image != "" {
		if img, err = tk.session.GetFile(tk.req.Image, session.KindImage); err != nil {
			return err
		}
	} else {
		images := tk.session.FilesOfKind(session.KindImage)
		if len(images) == 0 {
			return fmt.Errorf("sign: no image: %w", pdf.ErrNoInput)
		}
		img = images[len(images)-1]
	}
	data, err := os.ReadFile(img.Path)
	if err != nil {
		return err
	}
	rect, err := pdf.StampImage(rs, &tk.out, data, tk.req.Page, tk.req.Overlay, tk.req.Password)
	if err != nil {
		return err
	}
	tk.rect = &rect
	return nil
}

func (h *APIHandler) stampText(tk *task) error {
	rs, err := tk.pdfSource()
	if err != nil {
		return err
	}
	rect, err := pdf.StampText(rs, &tk.out, tk.req.Text, tk.req.Page, tk.req.Overlay, tk.req.Password)
	if err != nil {
		return err
	}
	tk.rect = &rect
	return nil
}

func (h *APIHandler) imagesToPDF(tk *task) error {
	files, err := tk.inputs(session.KindImage)
	if err != nil {
		return err
	}
	images, err := tk.readAll(files)
	if err != nil {
		return err
	}
	return pdf.ImagesToPDF(tk.ctx, images, &tk.out, tk.job.Reporter("convert"))
}

// defaultExportScale renders exported pages at 144 DPI.
const defaultExportScale = 2

func (h *APIHandler) pdfToImages(tk *task) error {
	format, ok := render.ParseFormat(tk.req.Format)
	if !ok {
		return fmt.Errorf("%w: format %q", errBadRequest, tk.req.Format)
	}
	scale := tk.req.Scale
	if scale <= 0 {
		scale = defaultExportScale
	}
	if tk.req.File == "" {
		files := tk.session.FilesOfKind(session.KindPDF)
		if len(files) == 0 {
			return pdf.ErrNoInput
		}
		tk.req.File = files[0].ID
	}
	f, err := tk.session.GetFile(tk.req.File, session.KindPDF)
	if err != nil {
		return err
	}
	tk.source = f.Name
	data, err := readPDF(f, tk.req.Password)
	if err != nil {
		return err
	}

	res, err := h.Rasterizer.Render(tk.ctx, data, render.Options{
		Scale:   scale,
		Format:  format,
		Quality: tk.req.Quality,
		Pages:   tk.req.Pages,
	}, tk.job.Reporter("render"))
	if err != nil {
		return err
	}
	base := utils.Stem(tk.source)
	entries := make([]pack.Entry, len(res.Pages))
	for i, p := range res.Pages {
		entries[i] = pack.Entry{Name: fmt.Sprintf("%s-page-%03d%s", base, p.Index+1, format.Ext()), Data: p.Data}
	}
	return tk.zip(entries)
}

func (h *APIHandler) extractImages(tk *task) error {
	rs, err := tk.pdfSource()
	if err != nil {
		return err
	}
	images, err := pdf.ExtractImages(rs, tk.req.Pages, tk.req.Password)
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return errNoImages
	}
	entries := make([]pack.Entry, len(images))
	for i, img := range images {
		entries[i] = pack.Entry{Name: img.Filename(), Data: img.Data}
	}
	tk.job.Report("extract", len(images), len(images))
	return tk.zip(entries)
}

func (h *APIHandler) fillForm(tk *task) error {
	if len(tk.req.Form) == 0 {
		return fmt.Errorf("%w: missing form", errBadRequest)
	}
	rs, err := tk.pdfSource()
	if err != nil {
		return err
	}
	return pdf.FillForm(rs, bytes.NewReader(tk.req.Form), &tk.out, tk.req.Password)
}
