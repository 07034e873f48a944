package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/storage"
)

type fakePresigner struct {
	err         error
	key         string
	contentType string
}

func (p *fakePresigner) PresignUpload(_ context.Context, key, contentType string, expires time.Duration) (*storage.UploadURL, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.key = key
	p.contentType = contentType
	return &storage.UploadURL{
		UploadURL: "https://bucket.example/" + key + "?sig=1",
		PublicURL: p.ObjectURL(key),
		Key:       key,
		ExpiresAt: time.Now().Add(expires),
	}, nil
}

func (p *fakePresigner) ObjectURL(key string) string {
	return "https://cdn.example/" + key
}

func TestPresignFeaturedImage(t *testing.T) {
	presigner := &fakePresigner{}
	svc := NewMediaService(presigner, 15*time.Minute, 1<<20)
	ctx := context.Background()
	actor := &domain.User{ID: "user-1"}

	resp, err := svc.PresignFeaturedImage(ctx, actor, &domain.PresignRequest{ContentType: "image/png", Size: 1024})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.Key, "featured/user-1/"))
	assert.True(t, strings.HasSuffix(resp.Key, ".png"))
	assert.Equal(t, presigner.key, resp.Key)
	assert.Equal(t, "image/png", presigner.contentType)
	assert.Equal(t, "https://cdn.example/"+resp.Key, resp.ImageURL)
	assert.Equal(t, 900, resp.ExpiresIn)
}

func TestPresignFeaturedImageValidation(t *testing.T) {
	svc := NewMediaService(&fakePresigner{}, time.Minute, 1<<20)
	ctx := context.Background()
	actor := &domain.User{ID: "user-1"}

	tests := []struct {
		name  string
		req   *domain.PresignRequest
		field string
	}{
		{name: "nil", req: nil, field: "body"},
		{name: "type", req: &domain.PresignRequest{ContentType: "application/pdf", Size: 10}, field: "content_type"},
		{name: "zero size", req: &domain.PresignRequest{ContentType: "image/jpeg"}, field: "size"},
		{name: "too large", req: &domain.PresignRequest{ContentType: "image/jpeg", Size: 1<<20 + 1}, field: "size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.PresignFeaturedImage(ctx, actor, tt.req)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	_, err := svc.PresignFeaturedImage(ctx, nil, &domain.PresignRequest{ContentType: "image/png", Size: 1})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestPresignFeaturedImagePresignerError(t *testing.T) {
	boom := errors.New("boom")
	svc := NewMediaService(&fakePresigner{err: boom}, time.Minute, 0)

	_, err := svc.PresignFeaturedImage(context.Background(), &domain.User{ID: "u"}, &domain.PresignRequest{ContentType: "image/gif", Size: 5})
	assert.ErrorIs(t, err, boom)
}
