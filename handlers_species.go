package main

import (
	"net/http"

	"sanfish/fishdata"

	"github.com/go-chi/chi/v5"
)

func (a *App) handleListSpecies(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := a.svc.ListSpecies(r.Context(), fishdata.SpeciesQuery{
		Family: q.Get("family"),
		Genus:  q.Get("genus"),
		Search: q.Get("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       res.Species,
		Pagination: &pagination{Total: res.Total, Page: res.Page, Limit: res.Limit, Pages: res.Pages},
	})
}

func (a *App) handleGetSpecies(w http.ResponseWriter, r *http.Request) {
	sp, err := a.svc.FindSpecies(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", sp)
}

func (a *App) handleCreateSpecies(w http.ResponseWriter, r *http.Request) {
	var in fishdata.SpeciesInput
	if err := a.decodeJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	sp, err := a.svc.CreateSpecies(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "species created", sp)
}

func (a *App) handleUpdateSpecies(w http.ResponseWriter, r *http.Request) {
	var in fishdata.SpeciesInput
	if err := a.decodeJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	sp, err := a.svc.UpdateSpecies(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "species updated", sp)
}

func (a *App) handleDeleteSpecies(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteSpecies(r.Context(), mustActor(r), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "species deleted", nil)
}

func (a *App) handleSpeciesStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.SpeciesStats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", st)
}
