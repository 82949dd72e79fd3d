package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"aiwriter/internal/domain"
)

type licenseReq struct {
	Key    string `json:"key"`
	Domain string `json:"domain"`
}

func (a *App) decodeLicenseReq(w http.ResponseWriter, r *http.Request) (licenseReq, bool) {
	var req licenseReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return req, false
	}
	req.Key = strings.TrimSpace(req.Key)
	req.Domain = strings.TrimSpace(req.Domain)
	if req.Key == "" || req.Domain == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "key and domain are required")
		return req, false
	}
	return req, true
}

func (a *App) LicenseActivate(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeLicenseReq(w, r)
	if !ok {
		return
	}

	act, err := a.Licenses.Activate(r.Context(), req.Key, req.Domain)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "unknown license key")
		return
	case errors.Is(err, domain.ErrLicenseInactive):
		a.error(w, http.StatusForbidden, "license_inactive", "license is not active")
		return
	case err != nil:
		a.Logger.Error().Err(err).Msg("license activation failed")
		a.error(w, http.StatusInternalServerError, "internal", "activation failed")
		return
	}

	a.json(w, http.StatusOK, map[string]any{
		"site_id": act.SiteID,
		"secret":  act.Secret,
		"plan":    act.Plan.Name,
	})
}

func (a *App) LicenseValidate(w http.ResponseWriter, r *http.Request) {
	req, ok := a.decodeLicenseReq(w, r)
	if !ok {
		return
	}

	v, err := a.Licenses.Validate(r.Context(), req.Key, req.Domain)
	if err != nil {
		a.Logger.Error().Err(err).Msg("license validation failed")
		a.error(w, http.StatusInternalServerError, "internal", "validation failed")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"valid":  v.Valid,
		"plan":   v.PlanName,
		"reason": v.Reason,
	})
}
