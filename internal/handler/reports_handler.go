package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/cleared-dev/acctree/internal/model"
	"github.com/cleared-dev/acctree/internal/service"
)

func compareHandler(svc *service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Accounts []model.AccountRecord `json:"accounts"`
		}
		if !decode(w, r, &body) {
			return
		}
		res, err := svc.Compare(r.Context(), body.Accounts)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func reportHierarchyHandler(svc *service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.ReportHierarchy(r.Context(), chi.URLParam(r, "reportId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func familiesHandler(svc *service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Families(r.Context(), chi.URLParam(r, "reportId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func batchFamiliesHandler(svc *service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ReportIDs []string `json:"reportIds"`
		}
		if !decode(w, r, &body) {
			return
		}
		res, err := svc.BatchFamilies(r.Context(), body.ReportIDs)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reports": res})
	}
}

func reconcileHandler(svc *service.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Reconcile(r.Context(), chi.URLParam(r, "reportId"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
