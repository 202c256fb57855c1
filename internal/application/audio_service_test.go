package application

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lysnhq/lysn-backend/internal/domain/entity"
)

type fakeExtractor struct {
	text string
	err  error
}

func (f fakeExtractor) Extract(io.ReaderAt, int64) (string, error) { return f.text, f.err }

type fakeSynthesizer struct{}

func (fakeSynthesizer) Synthesize(_ context.Context, text string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("mp3:" + text)), nil
}

type fakeAudioRepo struct {
	files []entity.AudioFile
}

func (r *fakeAudioRepo) Create(_ context.Context, a *entity.AudioFile) error {
	r.files = append(r.files, *a)
	return nil
}

func (r *fakeAudioRepo) ListByOwner(_ context.Context, owner string) ([]entity.AudioFile, error) {
	var out []entity.AudioFile
	for _, a := range r.files {
		if a.OwnerEmail == owner {
			out = append(out, a)
		}
	}
	return out, nil
}

func TestConvertRejectsNonPDF(t *testing.T) {
	s := &AudioService{Extractor: fakeExtractor{text: "hello"}, Synthesizer: fakeSynthesizer{}}
	_, err := s.Convert(context.Background(), "a@x.com", "notes.txt", strings.NewReader(""), 0)
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestConvertRejectsEmptyText(t *testing.T) {
	s := &AudioService{Extractor: fakeExtractor{text: "  \n "}, Synthesizer: fakeSynthesizer{}}
	_, err := s.Convert(context.Background(), "a@x.com", "scan.pdf", strings.NewReader(""), 0)
	assert.ErrorIs(t, err, ErrNoReadableText)
}

func TestConvertRequiresStorage(t *testing.T) {
	s := &AudioService{
		Repo:        &fakeAudioRepo{},
		Extractor:   fakeExtractor{text: "readable content"},
		Synthesizer: fakeSynthesizer{},
	}
	_, err := s.Convert(context.Background(), "a@x.com", "doc.pdf", strings.NewReader(""), 0)
	assert.ErrorIs(t, err, ErrStorageDisabled)
}

func TestListScopedToOwner(t *testing.T) {
	repo := &fakeAudioRepo{files: []entity.AudioFile{
		{ID: "1", OwnerEmail: "a@x.com", Filename: "a.pdf"},
		{ID: "2", OwnerEmail: "b@x.com", Filename: "b.pdf"},
		{ID: "3", OwnerEmail: "a@x.com", Filename: "c.pdf"},
	}}
	s := &AudioService{Repo: repo}

	files, err := s.List(context.Background(), "a@x.com")
	require.NoError(t, err)
	require.Len(t, files, 2)
	for _, a := range files {
		assert.Equal(t, "a@x.com", a.OwnerEmail)
	}
}

func TestSearchWithoutIndexReturnsEmpty(t *testing.T) {
	s := &AudioService{}
	hits, err := s.Search(context.Background(), "a@x.com", "report", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
