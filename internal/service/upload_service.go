package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/storyninja-api/internal/dto"
	appErrors "github.com/noah-isme/storyninja-api/pkg/errors"
	"github.com/noah-isme/storyninja-api/pkg/storage"
)

// Upload kinds.
const (
	UploadKindCover = "cover"
	UploadKindPDF   = "pdf"
)

const sniffLength = 3072

type uploadObserver interface {
	ObserveUpload(kind string)
}

// UploadConfig bounds accepted files.
type UploadConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// UploadService validates files and hands them to the configured storage backend.
type UploadService struct {
	uploader storage.Uploader
	metrics  uploadObserver
	cfg      UploadConfig
	logger   *zap.Logger
}

// NewUploadService constructs the service. metrics may be nil.
func NewUploadService(uploader storage.Uploader, metrics uploadObserver, cfg UploadConfig, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{uploader: uploader, metrics: metrics, cfg: cfg, logger: logger}
}

// Upload sniffs the content type, checks it against kind and the allow list,
// and stores the file under a generated key.
func (s *UploadService) Upload(ctx context.Context, userID, kind string, size int64, file io.Reader) (*dto.UploadResponse, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = UploadKindCover
	}
	if kind != UploadKindCover && kind != UploadKindPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "kind must be cover or pdf")
	}
	if size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is empty")
	}
	if s.cfg.MaxFileSizeBytes > 0 && size > s.cfg.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxFileSizeBytes))
	}

	head := make([]byte, sniffLength)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, internalError(err, "failed to read upload")
	}
	head = head[:n]

	detected := mimetype.Detect(head)
	if !s.allowed(kind, detected) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file type %s is not allowed for %s", detected.String(), kind))
	}

	contentType := detected.String()
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	key := fmt.Sprintf("%s/%s/%s%s", kind, userID, uuid.NewString(), detected.Extension())
	body := io.LimitReader(io.MultiReader(bytes.NewReader(head), file), size)

	obj, err := s.uploader.Put(ctx, key, contentType, body)
	if err != nil {
		return nil, internalError(err, "failed to store upload")
	}
	if s.metrics != nil {
		s.metrics.ObserveUpload(kind)
	}
	s.logger.Info("upload stored", zap.String("kind", kind), zap.String("public_id", obj.PublicID), zap.Int64("size", size))
	return &dto.UploadResponse{URL: obj.URL, PublicID: obj.PublicID}, nil
}

func (s *UploadService) allowed(kind string, detected *mimetype.MIME) bool {
	if kind == UploadKindPDF && !detected.Is("application/pdf") {
		return false
	}
	if kind == UploadKindCover && !strings.HasPrefix(detected.String(), "image/") {
		return false
	}
	if len(s.cfg.AllowedMIMEs) == 0 {
		return true
	}
	for _, m := range s.cfg.AllowedMIMEs {
		if detected.Is(m) {
			return true
		}
	}
	return false
}
