package main

import "sanfish/fishdata"

// imageFields are the client-side image lists merged into "images". Older
// forms send the kept and freshly added URLs separately.
type imageFields struct {
	ExistingImages []string `json:"existingImages"`
	NewImages      []string `json:"newImages"`
}

func (f imageFields) present() bool { return f.ExistingImages != nil || f.NewImages != nil }

type createPayload struct {
	fishdata.CreateInput
	imageFields
}

type patchPayload struct {
	fishdata.Patch
	imageFields
}

type addDiseasesReq struct {
	Diseases []fishdata.DiseaseInput `json:"diseases"`
}
