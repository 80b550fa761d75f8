package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"studio/internal/domain"
	"studio/internal/media"
)

type imageGenerateRequest struct {
	Prompt      string `json:"prompt"`
	AspectRatio string `json:"aspect_ratio"`
}

func (a *App) ImagesGenerate(w http.ResponseWriter, r *http.Request) {
	view, ok := a.view(w, r)
	if !ok {
		return
	}
	var req imageGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	aspect, err := domain.ParseAspectRatio(req.AspectRatio, domain.AspectSquare, domain.ImageAspectRatios)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ref, err := view.GenerateImage(r.Context(), req.Prompt, aspect)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, mediaResponse{Media: ref})
}

func (a *App) ImagesEdit(w http.ResponseWriter, r *http.Request) {
	view, ok := a.view(w, r)
	if !ok {
		return
	}
	prompt, source, err := a.readUpload(w, r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if source == nil {
		a.fail(w, r, domain.Invalid("Please upload an image and provide an editing instruction."))
		return
	}
	ref, err := view.EditImage(r.Context(), prompt, source)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, mediaResponse{Media: ref})
}

// readUpload parses a multipart form with a "prompt" field and an optional
// "image" file. A missing file yields a nil payload.
func (a *App) readUpload(w http.ResponseWriter, r *http.Request) (string, *media.Payload, error) {
	limit := a.Encoder.Limit()
	r.Body = http.MaxBytesReader(w, r.Body, limit+1<<20)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, &media.Error{Cause: media.CauseTooLarge}
		}
		return "", nil, domain.Invalid("Please upload an image and provide a prompt.")
	}
	prompt := r.FormValue("prompt")
	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		return prompt, nil, nil
	}
	payload, err := a.Encoder.EncodeFileHeader(files[0])
	if err != nil {
		return prompt, nil, err
	}
	return prompt, payload, nil
}
