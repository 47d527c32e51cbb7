package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"roomfinder/internal/services"
)

// imageFormKeys are the multipart field names clients send photos under.
var imageFormKeys = []string{"images", "image", "files"}

// collectImageFiles gathers the files sent under any of keys.
func collectImageFiles(form *multipart.Form, keys ...string) []*multipart.FileHeader {
	if form == nil {
		return nil
	}

	var result []*multipart.FileHeader
	for _, key := range keys {
		if headers, ok := form.File[key]; ok {
			result = append(result, headers...)
		}
	}
	return result
}

// imageContentType prefers the declared part type and sniffs the first
// bytes when the client sent none or a generic one.
func imageContentType(fh *multipart.FileHeader, f io.ReadSeeker) (string, error) {
	ct := strings.TrimSpace(fh.Header.Get("Content-Type"))
	if ct != "" && ct != "application/octet-stream" {
		return ct, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// openUpload turns a multipart file into a wizard upload. The caller closes
// the returned file.
func openUpload(fh *multipart.FileHeader) (services.ImageUpload, multipart.File, error) {
	f, err := fh.Open()
	if err != nil {
		return services.ImageUpload{}, nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	ct, err := imageContentType(fh, f)
	if err != nil {
		f.Close()
		return services.ImageUpload{}, nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return services.ImageUpload{
		FileName:    fh.Filename,
		ContentType: ct,
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}
