// Package http exposes the annotation engine over a small JSON API
package http

import (
	"encoding/json"
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"

	"challengeutils/internal/core/annotations"
	"challengeutils/internal/core/version"
	"challengeutils/internal/platform/logger"
	phttp "challengeutils/internal/platform/net/http"
	"challengeutils/internal/platform/net/http/bind"
	dom "challengeutils/internal/services/submissions/domain"
	subsvc "challengeutils/internal/services/submissions/service"
	teamdom "challengeutils/internal/services/teams/domain"
)

// Handlers bundles the ports the API mounts
type Handlers struct {
	Annotator dom.AnnotatorPort
	Status    dom.StatusPort
	Registrar teamdom.InvitePort
}

// New constructs the API handlers
func New(annotator dom.AnnotatorPort, status dom.StatusPort, registrar teamdom.InvitePort) *Handlers {
	return &Handlers{Annotator: annotator, Status: status, Registrar: registrar}
}

// Mount registers all routes on r
func (h *Handlers) Mount(r chi.Router) {
	r.Get("/healthz", h.healthz)
	r.Route("/submissions/{id}", func(r chi.Router) {
		r.Post("/annotations", h.annotate)
		r.Post("/acl", h.setACL)
		r.Post("/status", h.changeStatus)
	})
	r.Route("/evaluations/{id}", func(r chi.Router) {
		r.Post("/acl", h.setACLAll)
		r.Post("/status", h.changeAllStatuses)
	})
	r.Post("/teams/register", h.registerTeam)
}

func (h *Handlers) healthz(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	phttp.RespondOK(w, r, map[string]any{"ok": true, "build": version.Info()})
}

type annotateRequest struct {
	Annotations json.RawMessage `json:"annotations" validate:"required"`
	ToPublic    bool            `json:"toPublic"`
	Force       bool            `json:"force"`
}

func (h *Handlers) annotate(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id := chi.URLParam(r, "id")
	ctx := logger.WithRequest(r.Context(), "", id)

	req, err := bind.ParseJSON[annotateRequest](r)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	in, err := subsvc.ParseJSON(req.Annotations)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}

	st, err := h.Annotator.Annotate(ctx, id, in, dom.AnnotateOptions{
		ToPublic: req.ToPublic,
		Force:    req.Force,
	})
	if err != nil {
		// a visibility collision carries the losing keys so callers can
		// decide whether to retry with force
		if keys := annotations.ConflictKeys(err); keys != nil {
			phttp.RespondErrorData(w, r, err, map[string]any{"conflictKeys": keys})
			return
		}
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondOK(w, r, st)
}

type aclRequest struct {
	Keys    []string `json:"keys" validate:"required,min=1,dive,required"`
	Private bool     `json:"isPrivate"`
	// Status narrows a bulk update to one workflow state; empty or ALL means every submission
	Status string `json:"status"`
}

func (h *Handlers) setACL(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id := chi.URLParam(r, "id")
	ctx := logger.WithRequest(r.Context(), "", id)

	req, err := bind.ParseJSON[aclRequest](r)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	st, err := h.Annotator.SetACL(ctx, id, req.Keys, req.Private)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondOK(w, r, st)
}

func (h *Handlers) setACLAll(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id := chi.URLParam(r, "id")

	req, err := bind.ParseJSON[aclRequest](r)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	n, err := h.Annotator.SetACLAll(r.Context(), id, req.Keys, req.Private, req.Status)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondOK(w, r, map[string]int{"updated": n})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	// From narrows a bulk change to submissions currently in that state
	From string `json:"from"`
}

func (h *Handlers) changeStatus(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id := chi.URLParam(r, "id")
	ctx := logger.WithRequest(r.Context(), "", id)

	req, err := bind.ParseJSON[statusRequest](r)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	st, err := h.Status.ChangeStatus(ctx, id, req.Status)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondOK(w, r, st)
}

type registerRequest struct {
	// Project is the challenge project's syn id, not its name
	Project string `json:"project" validate:"required,synid"`
	Team    string `json:"team" validate:"required"`
}

func (h *Handlers) registerTeam(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	req, err := bind.ParseJSON[registerRequest](r)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	teamID, err := h.Registrar.Register(r.Context(), req.Project, req.Team)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondOK(w, r, map[string]string{"teamId": teamID})
}

func (h *Handlers) changeAllStatuses(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	id := chi.URLParam(r, "id")

	req, err := bind.ParseJSON[statusRequest](r)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	n, err := h.Status.ChangeAllStatuses(r.Context(), id, req.From, req.Status)
	if err != nil {
		phttp.RespondError(w, r, err)
		return
	}
	phttp.RespondOK(w, r, map[string]int{"updated": n})
}
