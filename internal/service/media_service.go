package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/weiawesome/quill/internal/domain"
	"github.com/weiawesome/quill/pkg/log"
	"github.com/weiawesome/quill/pkg/storage"
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

type mediaServiceImpl struct {
	presigner storage.Presigner
	expiry    time.Duration
	maxBytes  int64
}

// NewMediaService creates a media service issuing presigned featured-image uploads.
func NewMediaService(presigner storage.Presigner, expiry time.Duration, maxBytes int64) MediaService {
	return &mediaServiceImpl{
		presigner: presigner,
		expiry:    expiry,
		maxBytes:  maxBytes,
	}
}

// PresignFeaturedImage returns a PUT URL for one image under the actor's prefix.
// The returned ImageURL is what the author stores as the post's featured image.
func (s *mediaServiceImpl) PresignFeaturedImage(ctx context.Context, actor *domain.User, req *domain.PresignRequest) (*domain.PresignResponse, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, invalid("body", "request is required")
	}

	ext, ok := imageExtensions[req.ContentType]
	if !ok {
		return nil, invalid("content_type", "unsupported image type %q", req.ContentType)
	}
	if req.Size <= 0 {
		return nil, invalid("size", "size is required")
	}
	if s.maxBytes > 0 && req.Size > s.maxBytes {
		return nil, invalid("size", "image must be at most %d bytes", s.maxBytes)
	}

	key := fmt.Sprintf("featured/%s/%s%s", actor.ID, uuid.New().String(), ext)
	upload, err := s.presigner.PresignUpload(ctx, key, req.ContentType, s.expiry)
	if err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).Str("key", key).Msg("failed to presign upload")
		return nil, err
	}

	return &domain.PresignResponse{
		UploadURL: upload.UploadURL,
		ImageURL:  upload.PublicURL,
		Key:       upload.Key,
		ExpiresIn: int(s.expiry.Seconds()),
	}, nil
}

var _ MediaService = (*mediaServiceImpl)(nil)
