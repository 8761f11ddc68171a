package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/storage"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const (
	maxPhotoDimension = 1600
	photoJPEGQuality  = 80
)

// PhotoStore uploads a photo blob and returns a durable URL for it
type PhotoStore interface {
	Upload(ctx context.Context, objectPath string, data []byte) (string, error)
}

// IDPhotoPath is where a customer's ID photo is stored
func IDPhotoPath(ownerID, phone string, at time.Time) string {
	return fmt.Sprintf("owners/%s/ids/%s_%d.jpg", ownerID, phone, at.UnixMilli())
}

// SnapshotPath is where a machine meter snapshot is stored
func SnapshotPath(ownerID, shiftID, label string, at time.Time) string {
	return fmt.Sprintf("owners/%s/shifts/%s/%s_%d.jpg", ownerID, shiftID, url.PathEscape(label), at.UnixMilli())
}

// NormalizeImage decodes any supported image, fits it inside 1600x1600 and
// re-encodes it as JPEG
func NormalizeImage(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	img = imaging.Fit(img, maxPhotoDimension, maxPhotoDimension, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(photoJPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// FirebasePhotoStore writes to a Firebase Storage bucket and hands back a
// token-bearing download URL
type FirebasePhotoStore struct {
	bucket     *storage.BucketHandle
	bucketName string
}

func NewFirebasePhotoStore(bucket *storage.BucketHandle, bucketName string) *FirebasePhotoStore {
	return &FirebasePhotoStore{bucket: bucket, bucketName: bucketName}
}

func (s *FirebasePhotoStore) Upload(ctx context.Context, objectPath string, data []byte) (string, error) {
	jpeg, err := NormalizeImage(data)
	if err != nil {
		return "", err
	}

	token := uuid.New().String()
	wc := s.bucket.Object(objectPath).NewWriter(ctx)
	wc.ContentType = "image/jpeg"
	wc.Metadata = map[string]string{
		"firebaseStorageDownloadTokens": token,
	}

	if _, err := wc.Write(jpeg); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to upload %s: %w", objectPath, err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload %s: %w", objectPath, err)
	}

	return firebaseDownloadURL(s.bucketName, objectPath, token), nil
}

func firebaseDownloadURL(bucketName, objectPath, token string) string {
	escaped := strings.ReplaceAll(url.PathEscape(objectPath), "/", "%2F")
	return fmt.Sprintf("https://firebasestorage.googleapis.com/v0/b/%s/o/%s?alt=media&token=%s", bucketName, escaped, token)
}

// MemoryPhotoStore keeps uploads in memory. Set Err to make every upload fail.
type MemoryPhotoStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	Err     error
}

func NewMemoryPhotoStore() *MemoryPhotoStore {
	return &MemoryPhotoStore{Objects: make(map[string][]byte)}
}

func (s *MemoryPhotoStore) Upload(_ context.Context, objectPath string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	s.Objects[objectPath] = append([]byte(nil), data...)
	return "memory://" + objectPath, nil
}

// Count returns the number of stored objects
func (s *MemoryPhotoStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Objects)
}
