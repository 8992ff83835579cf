package main

import (
	"net/http"

	"sanfish/fishdata"

	"github.com/go-chi/chi/v5"
)

func (a *App) handleAddAnalysis(w http.ResponseWriter, r *http.Request) {
	var in fishdata.AnalysisInput
	if err := a.decodeJSON(w, r, &in); err != nil {
		a.fail(w, r, err)
		return
	}
	an, err := a.svc.AddAnalysis(r.Context(), mustActor(r), chi.URLParam(r, "fishId"), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, "analysis added", an)
}

func (a *App) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	list, err := a.svc.ListAnalyses(r.Context(), mustActor(r), chi.URLParam(r, "fishId"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", list)
}

func (a *App) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	an, err := a.svc.GetAnalysis(r.Context(), mustActor(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", an)
}

func (a *App) handleUpdateAnalysis(w http.ResponseWriter, r *http.Request) {
	var p fishdata.AnalysisPatch
	if err := a.decodeJSON(w, r, &p); err != nil {
		a.fail(w, r, err)
		return
	}
	an, err := a.svc.UpdateAnalysis(r.Context(), mustActor(r), chi.URLParam(r, "id"), p)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "analysis updated", an)
}

func (a *App) handleDeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteAnalysis(r.Context(), mustActor(r), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "analysis deleted", nil)
}
