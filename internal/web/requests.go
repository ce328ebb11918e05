package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/rollup/internal/core"
)

// maxSkipRows is the largest header-skip count a request may ask for.
const maxSkipRows = 10

// inspectRequest is the sheet selection sent with an upload.
type inspectRequest struct {
	Sheet    string `validate:"required,max=31"`
	SkipRows int    `validate:"min=0,max=10"`
}

// generateRequest is the column selection for a dataset.
type generateRequest struct {
	GroupBy        string   `json:"groupBy" validate:"required"`
	Value          string   `json:"value" validate:"required"`
	Include        []string `json:"include"`
	Exclude        []string `json:"exclude"`
	IncludeCleaned bool     `json:"includeCleaned"`
}

func (g generateRequest) toCore() core.GenerateRequest {
	return core.GenerateRequest{
		Overrides:      core.NewOverrideSet(g.Include, g.Exclude),
		GroupBy:        strings.TrimSpace(g.GroupBy),
		Value:          strings.TrimSpace(g.Value),
		IncludeCleaned: g.IncludeCleaned,
	}
}

func newValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// check validates v and turns failures into a requestError.
func (s *Server) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidRequest(err.Error())
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = formatFieldError(fe)
	}
	return invalidRequest(strings.Join(msgs, "; "))
}

func formatFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// uploadedFile is a workbook read from a multipart form.
type uploadedFile struct {
	Name string
	Data []byte
}

// readUpload parses the multipart form and reads the "file" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*uploadedFile, error) {
	maxSize := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, errFileTooLarge
		}
		return nil, invalidRequest("expected a multipart form with a file field")
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, core.ErrNoFile
		}
		return nil, invalidRequest(err.Error())
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, core.ErrEmptyFile
	}
	return &uploadedFile{Name: header.Filename, Data: data}, nil
}

// parseInspectForm reads sheet and skip_rows (or skipRows) from a parsed form.
// Missing values take the configured defaults.
func (s *Server) parseInspectForm(r *http.Request) (inspectRequest, error) {
	req := inspectRequest{
		Sheet:    strings.TrimSpace(r.FormValue("sheet")),
		SkipRows: s.cfg.Pipeline.SkipRows,
	}
	if req.Sheet == "" {
		req.Sheet = s.cfg.Pipeline.Sheet
	}

	raw := r.FormValue("skip_rows")
	if raw == "" {
		raw = r.FormValue("skipRows")
	}
	if raw = strings.TrimSpace(raw); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, invalidRequest("SkipRows must be a whole number")
		}
		req.SkipRows = n
	}

	return req, s.check(req)
}

// parseGenerateForm reads the column selection from an HTML form.
func (s *Server) parseGenerateForm(r *http.Request) (generateRequest, error) {
	if err := r.ParseForm(); err != nil {
		return generateRequest{}, invalidRequest(err.Error())
	}
	req := generateRequest{
		GroupBy:        r.PostForm.Get("group_by"),
		Value:          r.PostForm.Get("value"),
		Include:        r.PostForm["include"],
		Exclude:        r.PostForm["exclude"],
		IncludeCleaned: r.PostForm.Get("include_cleaned") == "true",
	}
	return req, s.check(req)
}
