package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/cleared-dev/acctree/internal/model"
	"github.com/cleared-dev/acctree/internal/rules"
	"github.com/cleared-dev/acctree/internal/service"
)

func validateClassificationHandler(svc *service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.ProposalRequest
		if !decode(w, r, &req) {
			return
		}
		res, err := svc.ValidateProposal(r.Context(), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func recommendHandler(svc *service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req service.RecommendRequest
		if !decode(w, r, &req) {
			return
		}
		res, err := svc.Recommend(r.Context(), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func listRulesHandler(svc *service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("active") == "true"
		list, err := svc.ListRules(r.Context(), activeOnly)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": list})
	}
}

func createRuleHandler(svc *service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rules.CreateRequest
		if !decode(w, r, &req) {
			return
		}
		rule, err := svc.CreateRule(r.Context(), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, rule)
	}
}

func updateRulesHandler(svc *service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req rules.UpdateRequest
		if !decode(w, r, &req) {
			return
		}
		res, err := svc.UpdateRules(r.Context(), req)
		var pe *model.PropagationError
		switch {
		case errors.As(err, &pe):
			logger.Warn("rule update partially applied",
				zap.String("code", string(pe.Code)),
				zap.Int("applied", len(res.Changes)),
			)
			writeJSON(w, http.StatusConflict, propagationResponse{
				Error:       err.Error(),
				AccountCode: pe.Code,
				NotUpdated:  pe.NotUpdated,
				Updated:     pe.Updated,
				Applied:     res.Changes,
			})
		case err != nil:
			handleServiceError(w, err, logger)
		default:
			writeJSON(w, http.StatusOK, res)
		}
	}
}
