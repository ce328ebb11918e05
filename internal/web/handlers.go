package web

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/rollup/internal/core"
	"github.com/JonMunkholm/rollup/internal/logging"
	"github.com/JonMunkholm/rollup/internal/web/templates"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleHealth reports liveness and the run limiter state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	datasets, runs := s.service.Stored()
	render.JSON(w, r, map[string]any{
		"status":   "ok",
		"runs":     s.service.LimiterStatus(),
		"datasets": datasets,
		"exports":  runs,
	})
}

// handleIndex renders the upload page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, templates.UploadPage(s.uploadForm(nil)))
}

func (s *Server) uploadForm(msg *core.UserMessage) templates.UploadForm {
	return templates.UploadForm{
		Sheet:    s.cfg.Pipeline.Sheet,
		SkipRows: s.cfg.Pipeline.SkipRows,
		MaxSkip:  maxSkipRows,
		Error:    msg,
	}
}

// handleInspect loads the uploaded workbook and shows the column page.
// Workbook errors re-render the upload form with the message.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		s.renderUploadError(w, r, err)
		return
	}
	form, err := s.parseInspectForm(r)
	if err != nil {
		s.renderUploadError(w, r, err)
		return
	}

	insp, err := s.service.Inspect(r.Context(), core.InspectRequest{
		FileName: upload.Name,
		Data:     upload.Data,
		Sheet:    form.Sheet,
		SkipRows: &form.SkipRows,
	})
	if err != nil {
		s.renderUploadError(w, r, err)
		return
	}

	s.renderPage(w, r, http.StatusOK, templates.ColumnsPage(templates.ColumnsView{
		Inspection: insp,
		GroupBy:    insp.Selection.GroupBy,
		Value:      insp.Selection.Value,
	}))
}

// renderUploadError re-renders the upload form for errors the user can act on.
// Anything without a specific message gets the generic error page.
func (s *Server) renderUploadError(w http.ResponseWriter, r *http.Request, err error) {
	if !core.IsUserFacing(err) {
		respondError(w, r, err, 0)
		return
	}
	msg := core.MapError(err)
	s.renderPage(w, r, statusFor(err), templates.UploadPage(s.uploadForm(&msg)))
}

// handleGenerate runs the roll-up for a dataset and shows the result page.
// A bad column selection re-renders the column page so the user can fix it.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")
	insp, err := s.service.Dataset(datasetID)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	form, err := s.parseGenerateForm(r)
	view := templates.ColumnsView{
		Inspection:     insp,
		GroupBy:        form.GroupBy,
		Value:          form.Value,
		Include:        toSet(form.Include),
		Exclude:        toSet(form.Exclude),
		IncludeCleaned: form.IncludeCleaned,
	}
	if err == nil {
		var run *core.RunResult
		run, err = s.service.Generate(r.Context(), datasetID, form.toCore())
		if err == nil {
			s.renderPage(w, r, http.StatusOK, templates.ResultPage(templates.ResultView{Inspection: insp, Run: run}))
			return
		}
	}

	var reqErr *requestError
	if core.IsConfigurationError(err) || errors.As(err, &reqErr) {
		msg := core.MapError(err)
		view.Error = &msg
		s.renderPage(w, r, statusFor(err), templates.ColumnsPage(view))
		return
	}
	respondError(w, r, err, 0)
}

// handleDownload streams a run's export workbook.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.service.Download(chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", name, url.PathEscape(name)))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	_, _ = w.Write(data)
}

// handleAPISheets lists the sheets of an uploaded workbook.
func (s *Server) handleAPISheets(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	sheets, err := s.service.Sheets(upload.Data)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	render.JSON(w, r, map[string]any{"sheets": sheets})
}

// handleAPIInspect loads and classifies an uploaded sheet.
func (s *Server) handleAPIInspect(w http.ResponseWriter, r *http.Request) {
	upload, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	form, err := s.parseInspectForm(r)
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	insp, err := s.service.Inspect(r.Context(), core.InspectRequest{
		FileName: upload.Name,
		Data:     upload.Data,
		Sheet:    form.Sheet,
		SkipRows: &form.SkipRows,
	})
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, insp)
}

// handleAPIDataset returns a stored inspection.
func (s *Server) handleAPIDataset(w http.ResponseWriter, r *http.Request) {
	insp, err := s.service.Dataset(chi.URLParam(r, "datasetID"))
	if err != nil {
		respondError(w, r, err, 0)
		return
	}
	render.JSON(w, r, insp)
}

// generateResponse is a RunResult plus its download URL.
type generateResponse struct {
	*core.RunResult
	DownloadURL string `json:"downloadUrl"`
}

// handleAPIGenerate runs the roll-up for a dataset from a JSON selection.
func (s *Server) handleAPIGenerate(w http.ResponseWriter, r *http.Request) {
	datasetID := chi.URLParam(r, "datasetID")

	var req generateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, invalidRequest("body must be a JSON object"), 0)
		return
	}
	if err := s.check(req); err != nil {
		respondError(w, r, err, 0)
		return
	}

	run, err := s.service.Generate(r.Context(), datasetID, req.toCore())
	if err != nil {
		respondError(w, r, err, 0)
		return
	}

	render.JSON(w, r, generateResponse{
		RunResult:   run,
		DownloadURL: "/api/runs/" + run.RunID + "/download",
	})
}

// renderPage writes an HTML page with the given status.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render page", "path", r.URL.Path, "error", err)
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}
