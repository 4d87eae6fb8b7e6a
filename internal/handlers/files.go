package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"go-pdftools/internal/i18n"
	"go-pdftools/internal/pdf"
	"go-pdftools/internal/render"
	"go-pdftools/internal/session"
	"go-pdftools/internal/utils"
)

// multipartOverhead is allowed on top of the file size limit for the form
// boundaries and other fields.
const multipartOverhead = 1 << 20

// readUpload reads the form file field, rejecting bodies over limit.
func readUpload(w http.ResponseWriter, r *http.Request, field string, limit int64) ([]byte, *multipart.FileHeader, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, errTooLarge
		}
		return nil, nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: form field %q: %v", errBadRequest, field, err)
	}
	defer file.Close()
	if header.Size > limit {
		return nil, nil, errTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, nil, err
	}
	if int64(len(data)) > limit {
		return nil, nil, errTooLarge
	}
	return data, header, nil
}

// store writes an upload to the upload directory under a unique name.
func (h *APIHandler) store(name string, data []byte) (id, path string, err error) {
	id = fmt.Sprintf("%s-%s", utils.GenerateUUID(), utils.SanitizeFilename(name))
	path = filepath.Join(h.Config.UploadDir, id)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", "", err
	}
	return id, path, nil
}

// UploadFile godoc
// @Summary      Upload a PDF file
// @Description  Uploads a PDF file to the session. Encrypted files are accepted and reported with encrypted=true; pass the password to the tools that read them.
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        sessionID  path      string  true   "Session ID"
// @Param        pdf        formData  file    true   "PDF file"
// @Param        password   formData  string  false  "Password used to read the page count"
// @Success      200  {object}  session.File
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      413  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/files [post]
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	data, header, err := readUpload(w, r, "pdf", h.Config.MaxUploadSize)
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}
	if strings.ToLower(filepath.Ext(header.Filename)) != ".pdf" || !pdf.Sniff(data) {
		h.fail(w, r, s, http.StatusBadRequest, i18n.InvalidPDF)
		return
	}

	f := session.File{
		Name:        header.Filename,
		Kind:        session.KindPDF,
		ContentType: "application/pdf",
		Size:        int64(len(data)),
	}
	// Encryption is detected without the password; the password only
	// unlocks the page count.
	pages, err := pdf.PageCount(bytes.NewReader(data), "")
	if errors.Is(err, pdf.ErrWrongPassword) {
		f.Encrypted = true
		if password := r.FormValue("password"); password != "" {
			pages, err = pdf.PageCount(bytes.NewReader(data), password)
		}
	}
	switch {
	case errors.Is(err, pdf.ErrWrongPassword):
	case err != nil:
		h.Logger.WithError(err).WithField("file", header.Filename).Debug("rejecting unreadable PDF")
		h.fail(w, r, s, http.StatusBadRequest, i18n.InvalidPDF)
		return
	default:
		f.Pages = pages
	}

	if f.ID, f.Path, err = h.store(header.Filename, data); err != nil {
		h.failErr(w, r, s, err)
		return
	}
	s.AddFile(f)
	writeJSON(w, http.StatusOK, f)
}

// UploadImage godoc
// @Summary      Upload an image
// @Description  Uploads an image (PNG, JPEG, GIF, WebP or BMP) used as a signature, stamp or images-to-PDF page
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Param        sessionID  path      string  true  "Session ID"
// @Param        image      formData  file    true  "Image file"
// @Success      200  {object}  session.File
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      413  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/images [post]
func (h *APIHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	data, header, err := readUpload(w, r, "image", h.Config.MaxImageSize)
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}

	// The extension must agree with the sniffed content type.
	contentType, accepted := pdf.SniffImage(data)
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !accepted || !slices.Contains(pdf.ImageContentTypes[contentType], ext) {
		h.fail(w, r, s, http.StatusBadRequest, i18n.InvalidImage)
		return
	}
	info, err := pdf.InspectImage(data)
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}

	f := session.File{
		Name:        header.Filename,
		Kind:        session.KindImage,
		ContentType: contentType,
		Size:        int64(len(data)),
		Width:       info.Width,
		Height:      info.Height,
	}
	if f.ID, f.Path, err = h.store(header.Filename, data); err != nil {
		h.failErr(w, r, s, err)
		return
	}
	s.AddFile(f)
	writeJSON(w, http.StatusOK, f)
}

// ListFiles godoc
// @Summary      List uploaded files
// @Tags         files
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Success      200  {array}   session.File
// @Failure      404  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/files [get]
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	files := s.GetFiles()
	if files == nil {
		files = []session.File{}
	}
	writeJSON(w, http.StatusOK, files)
}

// RemoveFile godoc
// @Summary      Remove an uploaded file
// @Tags         files
// @Param        sessionID  path  string  true  "Session ID"
// @Param        fileID     path  string  true  "File ID"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/files/{fileID} [delete]
func (h *APIHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	if s.JobRunning() {
		h.fail(w, r, s, http.StatusConflict, i18n.JobRunning)
		return
	}
	if err := s.RemoveFile(chi.URLParam(r, "fileID")); err != nil {
		h.failErr(w, r, s, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateOrder godoc
// @Summary      Set file order
// @Description  Sets the order of the uploaded files of one kind; used by merge and images-to-PDF
// @Tags         files
// @Accept       json
// @Produce      json
// @Param        sessionID  path  string  true  "Session ID"
// @Param        files      body  object  true  "{ files: [string] }"
// @Success      200  {object}  map[string]bool  "{ success: true }"
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/order [put]
func (h *APIHandler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	var fileOrder struct {
		Files []string `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&fileOrder); err != nil {
		h.fail(w, r, s, http.StatusBadRequest, i18n.InvalidRequest)
		return
	}
	if err := s.SetOrder(fileOrder.Files); err != nil {
		h.failErr(w, r, s, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// readPDF loads a PDF source and, when it is encrypted and a password is
// given, returns the decrypted bytes so MuPDF can open it.
func readPDF(f session.File, password string) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, err
	}
	if !f.Encrypted || password == "" {
		return data, nil
	}
	var buf bytes.Buffer
	if err := pdf.Unlock(bytes.NewReader(data), &buf, password); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type previewPage struct {
	Index   int    `json:"index"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	DataURL string `json:"dataUrl"`
}

type previewResponse struct {
	TotalPages int           `json:"totalPages"`
	Truncated  bool          `json:"truncated"`
	Pages      []previewPage `json:"pages"`
}

// queryFloat and queryInt return def when the parameter is absent.
func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("%w: %s=%q", errBadRequest, key, v)
	}
	return f, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", errBadRequest, key, v)
	}
	return n, nil
}

// PagePreviews godoc
// @Summary      Render page previews
// @Description  Renders the pages of an uploaded PDF in order and returns them as data URLs. At most limit pages are rendered; truncated reports whether pages were left out.
// @Tags         files
// @Produce      json
// @Param        sessionID  path   string  true   "Session ID"
// @Param        fileID     path   string  true   "File ID"
// @Param        scale      query  number  false  "Pixel scale, 1 = 72 DPI"
// @Param        width      query  int     false  "Maximum bitmap width in pixels, 0 keeps the rendered size"
// @Param        limit      query  int     false  "Maximum number of pages"
// @Param        format     query  string  false  "png or jpeg"
// @Param        password   query  string  false  "Password of an encrypted file"
// @Success      200  {object}  previewResponse
// @Failure      400  {object}  errorResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/files/{fileID}/pages [get]
func (h *APIHandler) PagePreviews(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	f, err := s.GetFile(chi.URLParam(r, "fileID"), session.KindPDF)
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}

	opts := render.Options{}
	var formatOK bool
	if opts.Format, formatOK = render.ParseFormat(r.URL.Query().Get("format")); !formatOK {
		h.fail(w, r, s, http.StatusBadRequest, i18n.InvalidRequest)
		return
	}
	if opts.Scale, err = queryFloat(r, "scale", h.Config.PreviewScale); err == nil {
		if opts.MaxWidth, err = queryInt(r, "width", h.Config.ThumbnailWidth); err == nil {
			opts.Limit, err = queryInt(r, "limit", h.Config.PreviewPageLimit)
		}
	}
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}
	if opts.Limit == 0 {
		opts.Limit = h.Config.PreviewPageLimit
	}

	data, err := readPDF(f, r.URL.Query().Get("password"))
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}

	j, ctx, err := s.StartJob(r.Context(), "preview")
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}
	res, err := h.Rasterizer.Render(ctx, data, opts, j.Reporter("render"))
	j.Finish(err)
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}

	resp := previewResponse{
		TotalPages: res.TotalPages,
		Truncated:  res.Truncated,
		Pages:      make([]previewPage, 0, len(res.Pages)),
	}
	for _, p := range res.Pages {
		resp.Pages = append(resp.Pages, previewPage{
			Index:   p.Index,
			Width:   p.Width,
			Height:  p.Height,
			DataURL: p.DataURL(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ExportForm godoc
// @Summary      Export form fields
// @Description  Returns the AcroForm fields of an uploaded PDF as JSON. Edit the values and send the JSON to the fill-form tool.
// @Tags         files
// @Produce      json
// @Param        sessionID  path   string  true   "Session ID"
// @Param        fileID     path   string  true   "File ID"
// @Param        password   query  string  false  "Password of an encrypted file"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/sessions/{sessionID}/files/{fileID}/form [get]
func (h *APIHandler) ExportForm(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	f, err := s.GetFile(chi.URLParam(r, "fileID"), session.KindPDF)
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		h.failErr(w, r, s, err)
		return
	}
	var buf bytes.Buffer
	if err := pdf.ExportForm(bytes.NewReader(data), &buf, f.Name, r.URL.Query().Get("password")); err != nil {
		h.failErr(w, r, s, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}
