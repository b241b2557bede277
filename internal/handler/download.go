package handler

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/leca/file-gateway/internal/imageproc"
	"github.com/leca/file-gateway/internal/metadata"
	"github.com/leca/file-gateway/internal/sniff"
	"github.com/leca/file-gateway/internal/source"
)

// DownloadFile handles GET /download_file?id=...&w=&h=&f= -- resolves the id
// through the metadata backend, streams the object from storage, and
// transforms it when it is a supported raster image.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id parameter", http.StatusNotFound)
		return
	}

	src, err := h.Resolver.ResolveID(r.Context(), id, metadata.FromRequest(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer src.Body.Close()

	h.deliver(w, r, src)
}

// DownloadURL handles GET /download_url?url=...&w=&h=&f= -- fetches an
// external resource, buffers it, and transforms it when it is a supported
// raster image. Invalid URLs are rejected before any outbound call.
func (h *Handler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "missing url parameter", http.StatusNotFound)
		return
	}

	src, err := h.Resolver.ResolveURL(r.Context(), raw)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer src.Body.Close()

	h.deliver(w, r, src)
}

// deliver runs the shared pipeline tail: sniff the source, transform when
// applicable, and emit the result. Both entry points converge here.
func (h *Handler) deliver(w http.ResponseWriter, r *http.Request, src *source.Source) {
	params := imageproc.ParseParams(r.URL.Query())

	st, body, err := sniff.Sniff(src.Body, src.DisplayName)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if !imageproc.CanTransform(st.MIME) {
		// Pass-through: the body streams to the client without buffering,
		// so large non-image objects stay memory-bounded.
		emitStream(w, src.DisplayName, st.MIME, body)
		return
	}

	// Raster decoding needs the whole image; materialize up to the cap.
	data, overflow, err := readCapped(body, h.Config.MaxTransformBytes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if overflow {
		slog.Warn("image exceeds transform size cap, passing through",
			"name", src.DisplayName, "mime", st.MIME, "cap", h.Config.MaxTransformBytes)
		emitStream(w, src.DisplayName, st.MIME, io.MultiReader(bytes.NewReader(data), body))
		return
	}

	out, err := imageproc.Transform(bytes.NewReader(data), params)
	if err != nil {
		h.writeError(w, err)
		return
	}

	emitBytes(w, src.DisplayName, imageproc.FinalMIME(st.MIME, params.Format), out)
}

// readCapped reads at most max bytes. overflow is true when the input holds
// more; the returned data then includes everything read so far and the
// remainder is still on the reader.
func readCapped(r io.Reader, max int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, false, err
	}
	return data, int64(len(data)) > max, nil
}

// writeError maps a pipeline failure to an HTTP status with a short text
// body. It must only be called before any body byte has been written.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)

	var svcErr *metadata.ServiceError
	switch {
	case errors.Is(err, source.ErrInvalidReference):
		http.Error(w, "invalid file reference", http.StatusNotFound)
	case errors.Is(err, source.ErrFetchFailed):
		http.Error(w, "could not fetch resource", http.StatusNotFound)
	case errors.Is(err, source.ErrNotFound):
		http.Error(w, "no record found", http.StatusBadRequest)
	case errors.Is(err, source.ErrInvalidMetadata):
		http.Error(w, "metadata record missing storage coordinates", http.StatusInternalServerError)
	case errors.As(err, &svcErr):
		http.Error(w, svcErr.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "processing error", http.StatusBadRequest)
	}
}

// emitBytes writes a fully materialized body with its final headers.
func emitBytes(w http.ResponseWriter, name, mime string, data []byte) {
	setHeaders(w, name, mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Error("writing response body", "name", name, "error", err)
	}
}

// emitStream copies the body to the client. Failures after the first byte
// cannot change the status; they are logged and the connection dropped.
func emitStream(w http.ResponseWriter, name, mime string, body io.Reader) {
	setHeaders(w, name, mime)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		slog.Error("streaming response body", "name", name, "error", err)
	}
}

func setHeaders(w http.ResponseWriter, name, mime string) {
	w.Header().Set("Content-Disposition", `filename="`+SanitizeFilename(name)+`"`)
	if mime != "" {
		w.Header().Set("Content-Type", mime)
	}
}

// SanitizeFilename strips characters that would break out of the quoted
// Content-Disposition filename: quotes, backslashes, path separators, and
// control characters. An empty result falls back to "download".
func SanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
		case r == '"' || r == '\\' || r == '/':
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "download"
	}
	return out
}
