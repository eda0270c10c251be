package handler

import (
	"encoding/json"
	"net/http"

	"go-cloud-clipper/internal/model"
	"go-cloud-clipper/internal/rules"
	"go-cloud-clipper/internal/settings"
	"go-cloud-clipper/pkg/apierror"
)

type SettingsHandler struct {
	settings *settings.Service
	matcher  *rules.Matcher
}

func NewSettingsHandler(settingsSvc *settings.Service, matcher *rules.Matcher) *SettingsHandler {
	return &SettingsHandler{settings: settingsSvc, matcher: matcher}
}

// Get returns the fully resolved settings; defaults fill anything the user
// never configured.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.Resolve(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, cfg)
}

// Update replaces the configuration. Connected surfaces learn about the
// change through the broadcast stream.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload model.Settings
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	if err := h.settings.Update(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}

	cfg, err := h.settings.Resolve(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, cfg)
}

// Rules returns the domain rule list alone.
func (h *SettingsHandler) Rules(w http.ResponseWriter, r *http.Request) {
	ruleSet, err := h.settings.DomainRules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, ruleSet)
}

// UpdateRules replaces the domain rule list, preserving order.
func (h *SettingsHandler) UpdateRules(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload []model.DomainRule
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}

	if err := h.settings.SetDomainRules(r.Context(), payload); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, payload)
}

type matchRequest struct {
	URL string `json:"url"`
}

type matchResponse struct {
	Matched bool              `json:"matched"`
	Rule    *model.DomainRule `json:"rule,omitempty"`
}

// Match reports which rule, if any, a page URL would route through. The
// options page uses it to preview rule behavior.
func (h *SettingsHandler) Match(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var payload matchRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.BadRequest("invalid JSON body", ""))
		return
	}
	if payload.URL == "" {
		writeError(w, apierror.BadRequest("url is required", "url"))
		return
	}

	ruleSet, err := h.settings.DomainRules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	rule := h.matcher.Match(payload.URL, ruleSet)
	writeSuccess(w, http.StatusOK, matchResponse{Matched: rule != nil, Rule: rule})
}
