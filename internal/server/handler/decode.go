package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fieldreport/internal/server/models"
)

const (
	dataField   = "data"
	photoPrefix = "photo_"
)

var errUnsupportedMedia = errors.New("unsupported content type")

// decodeRequest reads a JSON or multipart submission from r.
func decodeRequest(r *http.Request) (*models.Submission, error) {
	ct := r.Header.Get("Content-Type")
	mediaType := "application/json"
	if ct != "" {
		var err error
		if mediaType, _, err = mime.ParseMediaType(ct); err != nil {
			return nil, fmt.Errorf("%w: %q", errUnsupportedMedia, ct)
		}
	}

	switch mediaType {
	case "application/json":
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		return models.DecodeSubmission(body)
	case "multipart/form-data":
		return decodeMultipart(r)
	default:
		return nil, fmt.Errorf("%w: %q", errUnsupportedMedia, mediaType)
	}
}

type photoPart struct {
	index int
	att   models.Attachment
}

// decodeMultipart merges the photo_<n> parts into the attachments listed by
// the data field. Parts without a matching entry are appended in index order.
func decodeMultipart(r *http.Request) (*models.Submission, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrMalformed, err)
	}

	var (
		data   []byte
		photos []photoPart
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		name := part.FormName()
		switch {
		case name == dataField:
			if data, err = io.ReadAll(part); err != nil {
				return nil, err
			}
		case strings.HasPrefix(name, photoPrefix):
			idx, convErr := strconv.Atoi(strings.TrimPrefix(name, photoPrefix))
			if convErr != nil || idx < 0 {
				return nil, fmt.Errorf("%w: bad part name %q", models.ErrMalformed, name)
			}
			b, err := io.ReadAll(part)
			if err != nil {
				return nil, err
			}
			photos = append(photos, photoPart{index: idx, att: models.Attachment{
				Name:     part.FileName(),
				MimeType: part.Header.Get("Content-Type"),
				Data:     b,
			}})
		}
		_ = part.Close()
	}

	if data == nil {
		return nil, fmt.Errorf("%w: missing %q field", models.ErrMalformed, dataField)
	}
	sub, err := models.DecodeSubmission(data)
	if err != nil {
		return nil, err
	}

	sort.Slice(photos, func(i, j int) bool { return photos[i].index < photos[j].index })
	for _, p := range photos {
		if p.index < len(sub.Attachments) {
			a := &sub.Attachments[p.index]
			a.Data = p.att.Data
			if a.Name == "" {
				a.Name = p.att.Name
			}
			if a.MimeType == "" {
				a.MimeType = p.att.MimeType
			}
			continue
		}
		sub.Attachments = append(sub.Attachments, p.att)
	}
	return sub, nil
}
