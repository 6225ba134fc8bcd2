package daemon

import (
	"net/http"
	"strconv"
	"strings"

	"readout/internal/feeds"
	"readout/internal/media"
	"readout/internal/queue"
	"readout/internal/sources"
)

type submitURLRequest struct {
	URL    string `json:"url"`
	Engine string `json:"tts_engine"`
}

type submitTextRequest struct {
	Text   string `json:"text"`
	Engine string `json:"tts_engine"`
}

type batchRequest struct {
	URLs   []string `json:"urls"`
	Mode   string   `json:"mode"`
	Engine string   `json:"tts_engine"`
}

type batchRejection struct {
	URL   string `json:"url"`
	Error string `json:"error"`
}

type batchResponse struct {
	Accepted []taskView       `json:"accepted"`
	Rejected []batchRejection `json:"rejected"`
}

type sourceSpec struct {
	URL      string   `json:"url"`
	Category string   `json:"category"`
	Keywords []string `json:"keywords"`
}

type sourceAddRequest struct {
	Sources        []sourceSpec `json:"sources"`
	GlobalKeywords []string     `json:"global_keywords"`
}

type sourcesResponse struct {
	Sources        []sourceView `json:"sources"`
	GlobalKeywords []string     `json:"global_keywords"`
}

type audioDeleteRequest struct {
	Items []media.Ref `json:"items"`
}

func (s *apiServer) engineOrDefault(engine string) string {
	if trimmed := strings.TrimSpace(engine); trimmed != "" {
		return trimmed
	}
	return s.cfg.TTS.DefaultEngine
}

func (s *apiServer) handleSubmitURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	mode, ok := queue.ParseMode(strings.TrimPrefix(r.URL.Path, "/v1/url/"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown mode")
		return
	}
	var req submitURLRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	task, err := s.daemon.comps.Store.Enqueue(r.Context(),
		queue.URLOrigin(req.URL), mode, s.engineOrDefault(req.Engine))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, viewTask(task))
}

// handleText serves both submissions (POST /v1/text/<mode>) and media reads
// (GET /v1/text/<id>).
func (s *apiServer) handleText(w http.ResponseWriter, r *http.Request) {
	suffix := strings.TrimPrefix(r.URL.Path, "/v1/text/")
	if mode, ok := queue.ParseMode(suffix); ok {
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req submitTextRequest
		if err := decodeBody(r, &req); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		task, err := s.daemon.comps.Store.Enqueue(r.Context(),
			queue.TextOrigin(req.Text), mode, s.engineOrDefault(req.Engine))
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusAccepted, viewTask(task))
		return
	}
	s.handleMediaByID(w, r)
}

func (s *apiServer) handleBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req batchRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mode, ok := queue.ParseMode(req.Mode)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unknown mode "+req.Mode)
		return
	}
	engine := s.engineOrDefault(req.Engine)

	resp := batchResponse{Accepted: []taskView{}, Rejected: []batchRejection{}}
	for _, rawURL := range req.URLs {
		task, err := s.daemon.comps.Store.Enqueue(r.Context(), queue.URLOrigin(rawURL), mode, engine)
		if err != nil {
			resp.Rejected = append(resp.Rejected, batchRejection{URL: rawURL, Error: err.Error()})
			continue
		}
		resp.Accepted = append(resp.Accepted, viewTask(task))
	}
	s.writeJSON(w, http.StatusAccepted, resp)
}

func (s *apiServer) handleQueueStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	snap, err := s.daemon.comps.Status.Snapshot(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewSnapshot(snap))
}

func (s *apiServer) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var id int64
	if raw := r.URL.Query().Get("id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid task id")
			return
		}
		id = parsed
	} else {
		var req struct {
			ID int64 `json:"id"`
		}
		if err := decodeBody(r, &req); err != nil || req.ID == 0 {
			s.writeError(w, http.StatusBadRequest, "task id required")
			return
		}
		id = req.ID
	}
	if err := s.daemon.comps.Store.Remove(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int64{"removed": id})
}

func (s *apiServer) handleSourcesAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.comps.Sources == nil {
		s.writeError(w, http.StatusServiceUnavailable, "source management disabled")
		return
	}
	var req sourceAddRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Sources) == 0 && len(req.GlobalKeywords) == 0 {
		s.writeError(w, http.StatusBadRequest, "sources or global keywords required")
		return
	}
	if len(req.GlobalKeywords) > 0 {
		if err := s.daemon.comps.Sources.AddGlobalKeywords(r.Context(), req.GlobalKeywords); err != nil {
			s.writeServiceError(w, err)
			return
		}
	}
	saved := make([]sourceView, 0, len(req.Sources))
	for _, spec := range req.Sources {
		src, err := s.daemon.comps.Sources.Add(r.Context(), sources.Source{
			URL:      spec.URL,
			Category: spec.Category,
			Keywords: spec.Keywords,
		})
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		saved = append(saved, viewSource(*src))
	}
	s.writeJSON(w, http.StatusOK, map[string][]sourceView{"sources": saved})
}

func (s *apiServer) handleSourcesGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.comps.Sources == nil {
		s.writeError(w, http.StatusServiceUnavailable, "source management disabled")
		return
	}
	list, err := s.daemon.comps.Sources.List(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	global, err := s.daemon.comps.Sources.GlobalKeywords(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	resp := sourcesResponse{Sources: make([]sourceView, 0, len(list)), GlobalKeywords: global}
	for _, src := range list {
		resp.Sources = append(resp.Sources, viewSource(src))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *apiServer) handleSourcesFetch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.comps.Trigger == nil {
		s.writeError(w, http.StatusServiceUnavailable, "feed scanning disabled")
		return
	}
	s.daemon.comps.Trigger.ForceRun()
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

func (s *apiServer) handleTodaysArticles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.daemon.comps.Scanner == nil {
		s.writeError(w, http.StatusServiceUnavailable, "feed scanning disabled")
		return
	}
	articles := s.daemon.comps.Scanner.Today()
	if articles == nil {
		articles = []feeds.Candidate{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]feeds.Candidate{"articles": articles})
}

func (s *apiServer) handleAvailableMedia(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	query := r.URL.Query()
	var contentType media.ContentType
	if value := strings.TrimSpace(query.Get("type")); value != "" {
		parsed, ok := media.ParseContentType(value)
		if !ok {
			s.writeError(w, http.StatusBadRequest, "unknown media type "+value)
			return
		}
		contentType = parsed
	}
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	offset, _ := strconv.Atoi(query.Get("offset"))

	items, err := s.daemon.comps.Media.List(r.Context(), contentType, limit, offset)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	views := make([]mediaView, 0, len(items))
	for _, item := range items {
		views = append(views, viewMedia(item, false))
	}
	s.writeJSON(w, http.StatusOK, map[string][]mediaView{"media": views})
}

func (s *apiServer) handleMediaByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	trimmed := strings.TrimPrefix(r.URL.Path, "/v1/")
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[1] == "" || strings.Contains(parts[1], "/") {
		s.writeError(w, http.StatusNotFound, "media item not found")
		return
	}
	contentType, ok := media.ParseContentType(parts[0])
	if !ok {
		s.writeError(w, http.StatusNotFound, "media item not found")
		return
	}
	item, err := s.daemon.comps.Media.GetByID(r.Context(), contentType, parts[1])
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewMedia(item, true))
}

func (s *apiServer) handleAudioDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req audioDeleteRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Items) == 0 {
		s.writeError(w, http.StatusBadRequest, "no media items listed")
		return
	}
	deleted, err := s.daemon.comps.Media.Delete(r.Context(), req.Items)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"deleted": deleted})
}
