package main

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sanfish/fishdata"
	"sanfish/models"

	"github.com/go-chi/chi/v5"
)

func queryInt(r *http.Request, key string) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badRequest(key + " must be an integer")
	}
	return n, nil
}

func pageParams(r *http.Request) (page, limit int, err error) {
	if page, err = queryInt(r, "page"); err != nil {
		return 0, 0, err
	}
	limit, err = queryInt(r, "limit")
	return page, limit, err
}

// handleCreateFish creates a record with its initial disease batch. Uploaded
// files are removed again when the write does not commit.
func (a *App) handleCreateFish(w http.ResponseWriter, r *http.Request) {
	in, uploads, err := a.decodeCreate(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	res, err := a.svc.CreateWithDiseases(r.Context(), mustActor(r), in)
	if err != nil {
		a.discardUploads(r.Context(), uploads)
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, fmt.Sprintf("fish record created with %d diseases", res.DiseasesCount), res)
}

func (a *App) handleAddDiseases(w http.ResponseWriter, r *http.Request) {
	var req addDiseasesReq
	if err := a.decodeJSON(w, r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	added, err := a.svc.AppendDiseases(r.Context(), mustActor(r), chi.URLParam(r, "id"), req.Diseases)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusCreated, fmt.Sprintf("%d diseases added", len(added)), added)
}

func (a *App) handleListFish(w http.ResponseWriter, r *http.Request) {
	page, limit, err := pageParams(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	res, err := a.svc.List(r.Context(), mustActor(r), fishdata.ListQuery{
		SpeciesID: q.Get("species_id"),
		Status:    models.FishStatus(q.Get("status")),
		Country:   q.Get("country"),
		Region:    q.Get("region"),
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Data:       res.Records,
		Pagination: &pagination{Total: res.Total, Page: res.Page, Limit: res.Limit, Pages: res.Pages},
	})
}

func (a *App) handleFishStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.svc.Stats(r.Context(), mustActor(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", st)
}

func (a *App) handleGetFish(w http.ResponseWriter, r *http.Request) {
	rec, err := a.svc.Get(r.Context(), mustActor(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "", rec)
}

func (a *App) handleUpdateFish(w http.ResponseWriter, r *http.Request) {
	patch, uploads, err := a.decodePatch(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	rec, err := a.svc.Update(r.Context(), mustActor(r), chi.URLParam(r, "id"), patch)
	if err != nil {
		a.discardUploads(r.Context(), uploads)
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "fish record updated", rec)
}

func (a *App) handleDeleteFish(w http.ResponseWriter, r *http.Request) {
	res, err := a.svc.Delete(r.Context(), mustActor(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "fish record and related data deleted", map[string]any{"deleted": res})
}

func (a *App) handleListDiseases(w http.ResponseWriter, r *http.Request) {
	ds, err := a.svc.ListDiseases(r.Context(), mustActor(r), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if ds == nil {
		ds = []models.Disease{}
	}
	ok(w, http.StatusOK, "", ds)
}

func (a *App) handleDeleteDisease(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.DeleteDisease(r.Context(), mustActor(r), chi.URLParam(r, "id")); err != nil {
		a.fail(w, r, err)
		return
	}
	ok(w, http.StatusOK, "disease deleted", nil)
}
