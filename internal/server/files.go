// files.go - Upload, download, and delete handlers.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
)

// uploadResp is the JSON response returned after a successful upload. The
// private key is transmitted exactly once, here.
type uploadResp struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// notFound is the single client-facing shape for both missing entries and
// malformed keys.
func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not Found"})
}

// sanitizeFilename strips any path components from an uploaded filename.
// Separators are reserved; everything else is stored as sent.
func sanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// uploadHandler handles POST /files/ multipart uploads. The file arrives in
// the "file" form field; its content hash becomes the public key and the
// keyed hash of that becomes the private key. Re-uploading identical content
// with the same filename silently overwrites the stored entry.
func uploadHandler(index *FileIndex, secret string, maxUploadBytes int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if maxUploadBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		}

		mr, err := r.MultipartReader()
		if err != nil {
			http.Error(w, "bad multipart", http.StatusBadRequest)
			return
		}

		var content []byte
		var filename string
		found := false

		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "bad multipart", http.StatusBadRequest)
				return
			}

			if part.FormName() != "file" {
				_ = part.Close()
				continue
			}

			content, err = io.ReadAll(part)
			_ = part.Close()
			if err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
					return
				}
				http.Error(w, "bad multipart", http.StatusBadRequest)
				return
			}
			filename = sanitizeFilename(part.FileName())
			found = true
			break
		}

		if !found {
			http.Error(w, "missing file", http.StatusBadRequest)
			return
		}

		publicKey := DerivePublicKey(content)
		privateKey := DerivePrivateKey(publicKey, secret)

		if err := index.Insert(r.Context(), publicKey, filename, content); err != nil {
			rid := RequestIDFromContext(r.Context())
			Error("upload store failed", map[string]any{"rid": rid}, err)
			http.Error(w, "storage error", http.StatusBadGateway)
			return
		}

		GetMetrics().RecordUpload(int64(len(content)))
		writeJSON(w, http.StatusOK, uploadResp{
			PublicKey:  publicKey,
			PrivateKey: privateKey,
		})
	})
}

// downloadHandler handles GET /files/{publicKey}. A key that is not exactly
// 64 hex characters is answered like a missing file, not a validation error.
func downloadHandler(index *FileIndex) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		publicKey := r.PathValue("publicKey")
		if !isHexKey(publicKey) {
			notFound(w)
			return
		}

		entry, found, err := index.FindByPublicKey(r.Context(), publicKey)
		if err != nil {
			http.Error(w, "storage error", http.StatusBadGateway)
			return
		}
		if !found {
			notFound(w)
			return
		}

		content, err := index.Content(r.Context(), entry)
		if err != nil {
			// The sweep may have removed the entry between lookup and read.
			if errors.Is(err, ErrBlobNotFound) {
				notFound(w)
				return
			}
			http.Error(w, "storage error", http.StatusBadGateway)
			return
		}

		filename := index.OriginalFilename(entry)
		contentType := mime.TypeByExtension(filepath.Ext(filename))
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(content)))
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(content)

		GetMetrics().RecordDownload(int64(len(content)))
	})
}

// deleteHandler handles DELETE /files/{privateKey}. Deleting an already
// deleted file yields not-found, so a second call with the same key is 404.
func deleteHandler(index *FileIndex) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		privateKey := r.PathValue("privateKey")
		if !isHexKey(privateKey) {
			notFound(w)
			return
		}

		entry, found, err := index.FindByPrivateKey(r.Context(), privateKey)
		if err != nil {
			http.Error(w, "storage error", http.StatusBadGateway)
			return
		}
		if !found {
			notFound(w)
			return
		}

		if err := index.Delete(r.Context(), entry); err != nil {
			http.Error(w, "storage error", http.StatusBadGateway)
			return
		}

		GetMetrics().RecordDelete()
		writeJSON(w, http.StatusOK, map[string]string{"detail": "Delete successful"})
	})
}
