package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"sanfish/fishdata"

	"go.uber.org/zap"
)

// readBody returns the JSON document of a request: the raw JSON body, the
// JSON string carried in a top-level "data" field, or the "data" form value
// of a multipart request together with any uploaded image references.
func (a *App) readBody(w http.ResponseWriter, r *http.Request) (doc []byte, uploads []string, err error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		return a.readMultipart(w, r)
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
	doc, err = io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, badRequest("request body too large or unreadable")
	}
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil, nil, badRequest("request body is required")
	}
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(doc, &wrapper); err != nil {
		return nil, nil, badRequest("invalid json: " + err.Error())
	}
	if raw := bytes.TrimSpace(wrapper.Data); len(raw) > 0 && raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, nil, badRequest("invalid data field")
		}
		return []byte(inner), nil, nil
	}
	return doc, nil, nil
}

func (a *App) readMultipart(w http.ResponseWriter, r *http.Request) ([]byte, []string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes*10)
	if err := r.ParseMultipartForm(a.cfg.MaxUploadBytes); err != nil {
		return nil, nil, badRequest("invalid multipart form")
	}
	doc := []byte(r.FormValue("data"))
	if len(bytes.TrimSpace(doc)) == 0 {
		doc = []byte("{}")
	}

	var uploads []string
	for _, fh := range r.MultipartForm.File["images"] {
		if fh.Size > a.cfg.MaxUploadBytes {
			a.discardUploads(r.Context(), uploads)
			return nil, nil, badRequest(fmt.Sprintf("image %q exceeds %d bytes", fh.Filename, a.cfg.MaxUploadBytes))
		}
		ct := fh.Header.Get("Content-Type")
		if !strings.HasPrefix(ct, "image/") {
			a.discardUploads(r.Context(), uploads)
			return nil, nil, badRequest(fmt.Sprintf("file %q is not an image", fh.Filename))
		}
		f, err := fh.Open()
		if err != nil {
			a.discardUploads(r.Context(), uploads)
			return nil, nil, fmt.Errorf("open upload: %w", err)
		}
		ref, err := a.images.Put(r.Context(), fh.Filename, f, fh.Size, ct)
		_ = f.Close()
		if err != nil {
			a.discardUploads(r.Context(), uploads)
			return nil, nil, fmt.Errorf("store upload: %w", err)
		}
		uploads = append(uploads, ref)
	}
	return doc, uploads, nil
}

// discardUploads removes files stored for a request that did not commit.
func (a *App) discardUploads(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := a.images.Delete(context.WithoutCancel(ctx), ref); err != nil {
			a.log.Warn("discard upload", zap.String("ref", ref), zap.Error(err))
		}
	}
}

func mergeImages(lists ...[]string) []string {
	out := []string{}
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, ref := range list {
			ref = strings.TrimSpace(ref)
			if ref == "" {
				continue
			}
			if _, dup := seen[ref]; dup {
				continue
			}
			seen[ref] = struct{}{}
			out = append(out, ref)
		}
	}
	return out
}

func unmarshalDoc(doc []byte, v any) error {
	if err := json.Unmarshal(doc, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return badRequest(fmt.Sprintf("invalid value for %s", typeErr.Field))
		}
		return badRequest("invalid json: " + err.Error())
	}
	return nil
}

// decodeCreate normalizes every accepted create shape into one CreateInput.
func (a *App) decodeCreate(w http.ResponseWriter, r *http.Request) (fishdata.CreateInput, []string, error) {
	doc, uploads, err := a.readBody(w, r)
	if err != nil {
		return fishdata.CreateInput{}, nil, err
	}
	var p createPayload
	if err := unmarshalDoc(doc, &p); err != nil {
		a.discardUploads(r.Context(), uploads)
		return fishdata.CreateInput{}, nil, err
	}
	in := p.CreateInput
	in.Images = mergeImages(in.Images, p.ExistingImages, p.NewImages, uploads)
	return in, uploads, nil
}

func (a *App) decodePatch(w http.ResponseWriter, r *http.Request) (fishdata.Patch, []string, error) {
	doc, uploads, err := a.readBody(w, r)
	if err != nil {
		return fishdata.Patch{}, nil, err
	}
	var p patchPayload
	if err := unmarshalDoc(doc, &p); err != nil {
		a.discardUploads(r.Context(), uploads)
		return fishdata.Patch{}, nil, err
	}
	patch := p.Patch
	if patch.Images != nil || p.present() || len(uploads) > 0 {
		var base []string
		if patch.Images != nil {
			base = *patch.Images
		}
		merged := mergeImages(base, p.ExistingImages, p.NewImages, uploads)
		patch.Images = &merged
	}
	return patch, uploads, nil
}

// decodeJSON reads a plain JSON body into v.
func (a *App) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, a.cfg.MaxUploadBytes)
	doc, err := io.ReadAll(r.Body)
	if err != nil {
		return badRequest("request body too large or unreadable")
	}
	if len(bytes.TrimSpace(doc)) == 0 {
		return badRequest("request body is required")
	}
	return unmarshalDoc(doc, v)
}
