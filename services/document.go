package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const maxUploadSize = 10 << 20 // 10 MB

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".pdf":  true,
}

var allowedMimeTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
}

// DocumentService validates uploaded invoice documents and moves them into the
// managed upload directory.
type DocumentService struct {
	uploadDir string
	logger    *slog.Logger
}

func NewDocumentService(uploadDir string, logger *slog.Logger) (*DocumentService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(uploadDir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DocumentService{uploadDir: abs, logger: logger}, nil
}

// UploadDir returns the absolute path of the managed upload directory.
func (s *DocumentService) UploadDir() string {
	return s.uploadDir
}

// Save validates the upload and stores it under a generated unique name.
// Checks run in order (size, extension, sniffed MIME type) and the first
// failure short-circuits before anything is written to disk.
func (s *DocumentService) Save(file *multipart.FileHeader) (string, error) {
	if file.Size > maxUploadSize {
		return "", NewValidationError("file too large (max 10 MB)")
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return "", NewValidationError("file type not allowed, accepted extensions: jpg, jpeg, png, gif, webp, pdf")
	}

	src, err := file.Open()
	if err != nil {
		return "", NewValidationError("unreadable upload: %v", err)
	}
	defer src.Close()

	// Sniff the real content type, never trust the client-declared one.
	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", NewValidationError("could not detect file type: %v", err)
	}
	if !mimeAllowed(mtype) {
		return "", NewValidationError("MIME type not allowed: %s", mtype.String())
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	filename, err := generateFilename(ext)
	if err != nil {
		return "", fmt.Errorf("generate filename: %w", err)
	}
	destination := filepath.Join(s.uploadDir, filename)

	dst, err := os.Create(destination)
	if err != nil {
		return "", fmt.Errorf("create stored file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(destination)
		return "", fmt.Errorf("write stored file: %w", err)
	}

	s.logger.Info("document.stored", "path", destination, "size", file.Size, "mime", mtype.String())
	return destination, nil
}

// Delete removes a stored file. Missing files are not an error.
func (s *DocumentService) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func mimeAllowed(mtype *mimetype.MIME) bool {
	for _, allowed := range allowedMimeTypes {
		if mtype.Is(allowed) {
			return true
		}
	}
	return false
}

// generateFilename builds a collision-resistant name preserving the original
// extension: invoice_<timestamp>_<8 hex>.<ext>.
func generateFilename(ext string) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("invoice_%s_%s%s", time.Now().Format("20060102_150405"), hex.EncodeToString(suffix), ext), nil
}
