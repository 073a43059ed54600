package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/rushteam/artrec/core"
	"github.com/rushteam/artrec/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case core.IsUnavailable(err):
		details := err.Error()
		if de := core.GetDomainError(err); de != nil && de.Err != nil {
			details = de.Err.Error()
		}
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Data loading failed", Details: details})
	case core.IsNotFound(err):
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrInvalidArgument):
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		s.logger.Error().Err(err).Msg("request failed")
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Details: err.Error()})
	}
}

func badRequest(msg string) error {
	return fmt.Errorf("%s: %w", msg, service.ErrInvalidArgument)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(fmt.Sprintf("%s must be an integer", key))
	}
	return v, nil
}

func (s *Server) handleRecommend(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rawUser := q.Get("user_id")
	if rawUser == "" {
		s.writeError(w, badRequest("user_id parameter is required"))
		return
	}
	userID, err := strconv.ParseInt(rawUser, 10, 64)
	if err != nil {
		s.writeError(w, badRequest("user_id must be an integer"))
		return
	}
	req := service.Request{
		UserID:   userID,
		WithMeta: strings.EqualFold(q.Get("with_meta"), "true"),
	}
	// 缺省时使用服务端默认值；显式 n=0 返回空列表
	if q.Get("n") != "" {
		n, err := queryInt(r, "n", 0)
		if err != nil {
			s.writeError(w, err)
			return
		}
		if n < 0 {
			s.writeError(w, badRequest("n must be non-negative"))
			return
		}
		req.N = &n
	}
	if raw := q.Get("exclude"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
			if err != nil {
				s.writeError(w, badRequest("exclude must be a comma separated list of article ids"))
				return
			}
			req.Exclude = append(req.Exclude, id)
		}
	}

	recs, err := s.backend.Recommend(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	users, err := s.backend.Users(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.Health())
}
