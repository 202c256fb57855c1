package application

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lysnhq/lysn-backend/internal/domain/entity"
	repo "github.com/lysnhq/lysn-backend/internal/domain/repository"
	"github.com/lysnhq/lysn-backend/pkg/helpers"
)

var (
	ErrNotPDF          = errors.New("only PDF allowed")
	ErrNoReadableText  = errors.New("document has no readable text")
	ErrStorageDisabled = errors.New("blob storage not configured")
)

// TextExtractor pulls plain text out of an uploaded document.
type TextExtractor interface {
	Extract(r io.ReaderAt, size int64) (string, error)
}

// SpeechSynthesizer turns text into an mp3 stream. External collaborator;
// the service treats it as a black box.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

// AudioService runs the document-to-audio pipeline: extract text, synthesize
// speech, store the blob in GCS, persist metadata, index for search.
type AudioService struct {
	Repo        repo.AudioRepository
	Extractor   TextExtractor
	Synthesizer SpeechSynthesizer
	GCS         *storage.Client
	GCSBucket   string
	ES          *elasticsearch.Client
	ESIndex     string
	Logger      *logrus.Logger
}

// Convert processes one uploaded PDF for the given owner.
func (s *AudioService) Convert(ctx context.Context, ownerEmail, filename string, r io.ReaderAt, size int64) (*entity.AudioFile, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return nil, ErrNotPDF
	}
	text, err := s.Extractor.Extract(r, size)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoReadableText
	}

	speech, err := s.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	defer func() { _ = speech.Close() }()

	if s.GCS == nil || s.GCSBucket == "" {
		return nil, ErrStorageDisabled
	}
	id := uuid.NewString()
	objectPath := "audio/" + ownerEmail + "/" + id + ".mp3"
	url, err := helpers.UploadObject(ctx, s.GCS, s.GCSBucket, objectPath, "audio/mpeg", speech)
	if err != nil {
		return nil, err
	}

	a := &entity.AudioFile{
		ID:         id,
		OwnerEmail: ownerEmail,
		Filename:   filename,
		ObjectPath: objectPath,
		URL:        url,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return nil, err
	}
	_ = s.indexAudio(ctx, a)
	return a, nil
}

// List returns the owner's conversions, newest first.
func (s *AudioService) List(ctx context.Context, ownerEmail string) ([]entity.AudioFile, error) {
	return s.Repo.ListByOwner(ctx, ownerEmail)
}

func (s *AudioService) indexAudio(ctx context.Context, a *entity.AudioFile) error {
	if s.ES == nil || s.ESIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":          a.ID,
		"owner_email": a.OwnerEmail,
		"filename":    a.Filename,
		"url":         a.URL,
		"created_at":  a.CreatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESIndex, DocumentID: a.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("audio_id", a.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("audio_id", a.ID).Warn("es index response error")
	}
	return nil
}

// Search performs a multi_match over the owner's filenames.
func (s *AudioService) Search(ctx context.Context, ownerEmail, q string, size int) ([]map[string]any, error) {
	if s.ES == nil || s.ESIndex == "" {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": map[string]any{
					"multi_match": map[string]any{
						"query":  q,
						"fields": []string{"filename^2", "url"},
					},
				},
				"filter": map[string]any{
					"term": map[string]any{"owner_email": ownerEmail},
				},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
