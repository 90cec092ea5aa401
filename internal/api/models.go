package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KhuramC/EconomySim-sub000/internal/config"
	"github.com/KhuramC/EconomySim-sub000/internal/economy"
	"github.com/KhuramC/EconomySim-sub000/internal/engine"
	"github.com/KhuramC/EconomySim-sub000/internal/persistence"
)

var errBadRequest = errors.New("bad request")

// createRequest is the body of POST /api/v1/models. A full configuration
// document wins over the default-config shorthand.
type createRequest struct {
	Config              map[string]any `json:"config"`
	NumPeople           int            `json:"num_people"`
	MaxSimulationLength int            `json:"max_simulation_length"`
	Seed                *int64         `json:"seed"`
}

type modelView struct {
	ID uuid.UUID `json:"id"`
	engine.Summary
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	return raw, nil
}

func isYAML(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.Contains(ct, "yaml")
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(w, r)
	if err != nil {
		s.writeModelError(w, err)
		return
	}

	var req createRequest
	if isYAML(r) {
		// A YAML body is the configuration document itself.
		doc, err := config.ParseDocument(raw)
		if err != nil {
			s.writeModelError(w, err)
			return
		}
		req.Config = doc
	} else if err := json.Unmarshal(raw, &req); err != nil {
		s.writeModelError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	var cfg *config.ModelConfig
	if req.Config != nil {
		cfg, err = config.DecodeModel(req.Config)
		if err != nil {
			s.writeModelError(w, err)
			return
		}
	} else {
		cfg = config.DefaultModelConfig(req.NumPeople, req.MaxSimulationLength)
	}

	seed := s.Entropy.Seed(r.Context())
	if req.Seed != nil {
		seed = *req.Seed
	}

	id, err := s.Models.Create(cfg, seed)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	s.metrics.modelsCreated.Inc()

	summary, err := s.Models.Summary(id)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	w.Header().Set("Location", "/api/v1/models/"+id.String())
	writeJSON(w, http.StatusCreated, modelView{ID: id, Summary: summary})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	out := []modelView{}
	for _, id := range s.Models.List() {
		summary, err := s.Models.Summary(id)
		if err != nil {
			// Deleted between List and Summary.
			continue
		}
		out = append(out, modelView{ID: id, Summary: summary})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleModel(w http.ResponseWriter, r *http.Request) {
	id, ok := s.modelID(w, r)
	if !ok {
		return
	}
	summary, err := s.Models.Summary(id)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, modelView{ID: id, Summary: summary})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.modelID(w, r)
	if !ok {
		return
	}
	if err := s.Models.Delete(id); err != nil {
		s.writeModelError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleStep advances a model. The body {"ticks": n} is optional; an empty
// body steps one week.
func (s *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	id, ok := s.modelID(w, r)
	if !ok {
		return
	}
	raw, err := readBody(w, r)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	req := struct {
		Ticks *int `json:"ticks"`
	}{}
	if len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			s.writeModelError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
	}
	ticks := 1
	if req.Ticks != nil {
		ticks = *req.Ticks
	}

	start := time.Now()
	week, err := s.Models.Step(id, ticks)
	s.metrics.stepDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.writeModelError(w, err)
		return
	}

	summary, err := s.Models.Summary(id)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"week":     week,
		"finished": summary.Week >= summary.MaxSimulationLength,
		"latest":   summary.Latest,
	})
}

func (s *Server) handleGetPolicies(w http.ResponseWriter, r *http.Request) {
	id, ok := s.modelID(w, r)
	if !ok {
		return
	}
	p, err := s.Models.Policies(id)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handlePutPolicies replaces every policy at once. The body is a complete
// policy document in JSON or YAML.
func (s *Server) handlePutPolicies(w http.ResponseWriter, r *http.Request) {
	id, ok := s.modelID(w, r)
	if !ok {
		return
	}
	raw, err := readBody(w, r)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	doc, err := config.ParseDocument(raw)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	p, err := config.DecodePolicies(doc)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	if err := s.Models.SetPolicies(id, p); err != nil {
		s.writeModelError(w, err)
		return
	}
	current, err := s.Models.Policies(id)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, current)
}

// rangeQuery reads start, end and the comma-separated names parameter.
func rangeQuery(r *http.Request) (start, end int, names []string, err error) {
	q := r.URL.Query()
	if v := q.Get("start"); v != "" {
		if start, err = strconv.Atoi(v); err != nil {
			return 0, 0, nil, fmt.Errorf("%w: start %q", errBadRequest, v)
		}
	}
	if v := q.Get("end"); v != "" {
		if end, err = strconv.Atoi(v); err != nil {
			return 0, 0, nil, fmt.Errorf("%w: end %q", errBadRequest, v)
		}
	}
	if v := q.Get("names"); v != "" {
		for _, name := range strings.Split(v, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}
	return start, end, names, nil
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	id, ok := s.modelID(w, r)
	if !ok {
		return
	}
	start, end, names, err := rangeQuery(r)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	series, err := s.Models.IndicatorSeries(id, start, end, names)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleIndustries(w http.ResponseWriter, r *http.Request) {
	id, ok := s.modelID(w, r)
	if !ok {
		return
	}
	start, end, names, err := rangeQuery(r)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	var types []economy.IndustryType
	for _, name := range names {
		t, err := economy.ParseIndustryType(name)
		if err != nil {
			s.writeModelError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		types = append(types, t)
	}
	rows, err := s.Models.IndustrySeries(id, start, end, types)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDemographics(w http.ResponseWriter, r *http.Request) {
	id, ok := s.modelID(w, r)
	if !ok {
		return
	}
	start, end, names, err := rangeQuery(r)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	var demos []economy.Demographic
	for _, name := range names {
		d, err := economy.ParseDemographic(name)
		if err != nil {
			s.writeModelError(w, fmt.Errorf("%w: %v", errBadRequest, err))
			return
		}
		demos = append(demos, d)
	}
	rows, err := s.Models.DemographicSeries(id, start, end, demos)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleLorenz returns the Lorenz curve of the model's current balances.
func (s *Server) handleLorenz(w http.ResponseWriter, r *http.Request) {
	id, ok := s.modelID(w, r)
	if !ok {
		return
	}
	curve, err := s.Models.Lorenz(id)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, curve)
}

// handleSnapshot archives a model's history to the database.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := s.modelID(w, r)
	if !ok {
		return
	}
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "archive not configured", nil)
		return
	}
	var week int
	err := s.Models.Export(id, func(m *engine.Model) error {
		week = m.Week()
		return s.DB.SaveModel(id.String(), m)
	})
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "week": week})
}

func (s *Server) handleArchiveList(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "archive not configured", nil)
		return
	}
	models, err := s.DB.Models()
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	if models == nil {
		models = []persistence.ArchivedModel{}
	}
	writeJSON(w, http.StatusOK, models)
}

// handleArchived returns an archived model's metadata and indicator rows.
func (s *Server) handleArchived(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "archive not configured", nil)
		return
	}
	id := r.PathValue("id")
	meta, err := s.DB.Model(id)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	rows, err := s.DB.IndicatorRows(id)
	if err != nil {
		s.writeModelError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"model":      meta,
		"policies":   json.RawMessage(meta.PoliciesJSON),
		"indicators": rows,
	})
}

func (s *Server) handleArchiveDelete(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		writeError(w, http.StatusServiceUnavailable, "archive not configured", nil)
		return
	}
	if err := s.DB.DeleteModel(r.PathValue("id")); err != nil {
		s.writeModelError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
