package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/banshee-data/pointer.predict/internal/httputil"
	"github.com/banshee-data/pointer.predict/internal/predict"
)

// maxBatchSamples bounds how many samples one request may carry.
const maxBatchSamples = 1000

// samplesRequest carries either one sample inline or a batch.
type samplesRequest struct {
	Samples   []predict.Sample `json:"samples,omitempty"`
	X         *float64         `json:"x,omitempty"`
	Y         *float64         `json:"y,omitempty"`
	Timestamp *float64         `json:"timestamp_ms,omitempty"`
	Pressure  *float64         `json:"pressure,omitempty"`
}

func (req samplesRequest) samples() ([]predict.Sample, error) {
	batch := req.Samples
	if len(batch) == 0 {
		if req.X == nil || req.Y == nil || req.Timestamp == nil {
			return nil, errors.New("x, y and timestamp_ms are required")
		}
		batch = []predict.Sample{{X: *req.X, Y: *req.Y, Timestamp: *req.Timestamp, Pressure: req.Pressure}}
	} else if req.X != nil || req.Y != nil || req.Timestamp != nil {
		return nil, errors.New("send either one sample or a samples batch, not both")
	}
	if len(batch) > maxBatchSamples {
		return nil, fmt.Errorf("batch of %d samples exceeds limit of %d", len(batch), maxBatchSamples)
	}
	for i, s := range batch {
		if s.Pressure != nil && (*s.Pressure < 0 || *s.Pressure > 1) {
			return nil, fmt.Errorf("sample %d: pressure must be between 0 and 1", i)
		}
	}
	return batch, nil
}

// SamplesResponse reports the outcome of a sample upload.
type SamplesResponse struct {
	Accepted    int                 `json:"accepted"`
	SampleCount int                 `json:"sample_count"`
	Prediction  *predict.Prediction `json:"prediction"` // From the last accepted sample
}

// PredictionResponse is the body of a prediction pull.
type PredictionResponse struct {
	Prediction  *predict.Prediction `json:"prediction"`
	SampleCount int                 `json:"sample_count"`
}

// VerifyRequest is the observed position for the pending prediction.
type VerifyRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// VerifyResponse reports whether a pending prediction was scored.
type VerifyResponse struct {
	Verified bool                  `json:"verified"`
	Metrics  predict.EngineMetrics `json:"metrics"`
}

// AlgorithmBody is the body of the algorithm routes.
type AlgorithmBody struct {
	Algorithm predict.Algorithm `json:"algorithm"`
}

// SessionState is returned by the lifecycle routes.
type SessionState struct {
	ID          string            `json:"id"`
	Active      bool              `json:"active"`
	Algorithm   predict.Algorithm `json:"algorithm"`
	SampleCount int               `json:"sample_count"`
}

func stateOf(id string, e *predict.Engine) SessionState {
	return SessionState{ID: id, Active: e.IsActive(), Algorithm: e.Algorithm(), SampleCount: e.SampleCount()}
}

// handlePointers lists sessions or creates one with a generated ID.
func (s *Server) handlePointers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, s.sessions.List())
	case http.MethodPost:
		sess, err := s.sessions.GetOrCreate(NewID())
		if err != nil {
			s.writeSessionError(w, err)
			return
		}
		var state SessionState
		_ = sess.Do(func(e *predict.Engine) error {
			state = stateOf(sess.ID, e)
			return nil
		})
		httputil.WriteJSON(w, http.StatusCreated, state)
	default:
		httputil.MethodNotAllowed(w)
	}
}

// handlePointer dispatches /api/pointers/{id}[/{action}].
func (s *Server) handlePointer(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/pointers/"), "/")
	id, action, _ := strings.Cut(path, "/")
	if !ValidPointerID(id) {
		httputil.BadRequest(w, "invalid pointer id")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodDelete && r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		if r.Method == http.MethodDelete {
			if !s.sessions.Delete(id) {
				httputil.NotFound(w, "unknown pointer "+id)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.withSession(w, id, func(e *predict.Engine) {
			httputil.WriteJSONOK(w, stateOf(id, e))
		})
	case "samples":
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		s.handleSamples(w, r, id)
	case "prediction":
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		s.handlePrediction(w, r, id)
	case "verify":
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		s.handleVerify(w, r, id)
	case "start", "stop", "reset":
		if r.Method != http.MethodPost {
			httputil.MethodNotAllowed(w)
			return
		}
		s.withSession(w, id, func(e *predict.Engine) {
			switch action {
			case "start":
				e.Start()
			case "stop":
				e.Stop()
			case "reset":
				e.Reset()
			}
			httputil.WriteJSONOK(w, stateOf(id, e))
		})
	case "algorithm":
		s.handleAlgorithm(w, r, id)
	case "metrics":
		if r.Method != http.MethodGet {
			httputil.MethodNotAllowed(w)
			return
		}
		s.withSession(w, id, func(e *predict.Engine) {
			httputil.WriteJSONOK(w, e.Metrics())
		})
	default:
		httputil.NotFound(w, "unknown pointer route "+action)
	}
}

// withSession runs fn under the session lock, or writes 404.
func (s *Server) withSession(w http.ResponseWriter, id string, fn func(e *predict.Engine)) {
	sess, ok := s.sessions.Get(id)
	if !ok {
		httputil.NotFound(w, "unknown pointer "+id)
		return
	}
	_ = sess.Do(func(e *predict.Engine) error {
		fn(e)
		return nil
	})
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSessionLimit):
		httputil.WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, ErrInvalidPointerID):
		httputil.BadRequest(w, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request, id string) {
	var req samplesRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	batch, err := req.samples()
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	sess, err := s.sessions.GetOrCreate(id)
	if err != nil {
		s.writeSessionError(w, err)
		return
	}

	var resp SamplesResponse
	_ = sess.Do(func(e *predict.Engine) error {
		for _, smp := range batch {
			resp.Prediction = e.AddSample(smp.X, smp.Y, smp.Timestamp, smp.Pressure)
		}
		resp.Accepted = len(batch)
		resp.SampleCount = e.SampleCount()
		return nil
	})
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) handlePrediction(w http.ResponseWriter, r *http.Request, id string) {
	var horizon *float64
	if v := r.URL.Query().Get("horizon_ms"); v != "" {
		h, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
			httputil.BadRequest(w, "invalid 'horizon_ms' parameter")
			return
		}
		horizon = &h
	}
	s.withSession(w, id, func(e *predict.Engine) {
		httputil.WriteJSONOK(w, PredictionResponse{
			Prediction:  e.Predict(horizon),
			SampleCount: e.SampleCount(),
		})
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request, id string) {
	var req VerifyRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	s.withSession(w, id, func(e *predict.Engine) {
		pending := e.HasPending()
		e.VerifyPrediction(req.X, req.Y)
		httputil.WriteJSONOK(w, VerifyResponse{Verified: pending, Metrics: e.Metrics()})
	})
}

func (s *Server) handleAlgorithm(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		s.withSession(w, id, func(e *predict.Engine) {
			httputil.WriteJSONOK(w, AlgorithmBody{Algorithm: e.Algorithm()})
		})
	case http.MethodPut:
		var body struct {
			Algorithm *predict.Algorithm `json:"algorithm"`
		}
		if err := httputil.DecodeJSON(w, r, &body); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if body.Algorithm == nil {
			httputil.BadRequest(w, "algorithm is required")
			return
		}
		s.withSession(w, id, func(e *predict.Engine) {
			e.SetAlgorithm(*body.Algorithm)
			httputil.WriteJSONOK(w, stateOf(id, e))
		})
	default:
		httputil.MethodNotAllowed(w)
	}
}
