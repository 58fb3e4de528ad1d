package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/appnity/bannerstudio-backend/internal/models"
)

// ErrImageNotFound is returned by Load for an unknown key.
var ErrImageNotFound = errors.New("image not found")

// StoredImage describes where a generated panel was written.
type StoredImage struct {
	URL    string
	Key    string
	Bucket string
}

// ImageStore persists generated panels and reads them back as references.
type ImageStore interface {
	Save(ctx context.Context, panel string, img *Image) (*StoredImage, error)
	Load(ctx context.Context, key string) (*Image, error)
	// KeyForURL maps a public URL produced by Save back to its key.
	KeyForURL(url string) (string, bool)
}

// imageMIME returns the declared type of img, sniffing the bytes when the
// generator left it empty.
func imageMIME(img *Image) string {
	if img.MIMEType != "" {
		return img.MIMEType
	}
	return http.DetectContentType(img.Data)
}

func panelFileName(panel, mime string) string {
	ext := ".png"
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])) {
	case "image/jpeg", "image/jpg":
		ext = ".jpg"
	case "image/webp":
		ext = ".webp"
	case "image/gif":
		ext = ".gif"
	}
	return fmt.Sprintf("%s-panel-%s%s", panel, uuid.New().String(), ext)
}

// LocalStore writes images into a directory served under /designs.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}
	return &LocalStore{Dir: dir, URLPrefix: "/designs/"}, nil
}

func (s *LocalStore) Save(ctx context.Context, panel string, img *Image) (*StoredImage, error) {
	name := panelFileName(panel, imageMIME(img))
	if err := os.WriteFile(filepath.Join(s.Dir, name), img.Data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s panel: %w", panel, err)
	}
	return &StoredImage{
		URL:    s.URLPrefix + name,
		Key:    name,
		Bucket: models.BucketLocal,
	}, nil
}

func (s *LocalStore) Load(ctx context.Context, key string) (*Image, error) {
	name := filepath.Base(key)
	if name != key || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid image key %q", key)
	}
	data, err := os.ReadFile(filepath.Join(s.Dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}
	return &Image{Data: data, MIMEType: http.DetectContentType(data)}, nil
}

func (s *LocalStore) KeyForURL(url string) (string, bool) {
	if !strings.HasPrefix(url, s.URLPrefix) {
		return "", false
	}
	key := strings.TrimPrefix(url, s.URLPrefix)
	return key, key != "" && !strings.Contains(key, "/")
}

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store writes images into an S3-compatible bucket (Cloudflare R2).
type S3Store struct {
	client    s3API
	bucket    string
	publicURL string
	prefix    string
}

// R2Options are the credentials for a Cloudflare R2 bucket.
type R2Options struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

func NewR2Store(ctx context.Context, opts R2Options) (*S3Store, error) {
	if opts.AccountID == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("R2_ACCOUNT_ID and R2_BUCKET_NAME are required for s3 storage")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load storage config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID))
	})

	publicURL := opts.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("https://%s.r2.dev", opts.Bucket)
	}
	return newS3Store(client, opts.Bucket, publicURL), nil
}

func newS3Store(client s3API, bucket, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
		prefix:    "designs/",
	}
}

func (s *S3Store) Save(ctx context.Context, panel string, img *Image) (*StoredImage, error) {
	mime := imageMIME(img)
	key := s.prefix + panelFileName(panel, mime)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(mime),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s panel: %w", panel, err)
	}

	return &StoredImage{
		URL:    s.publicURL + "/" + key,
		Key:    key,
		Bucket: s.bucket,
	}, nil
}

func (s *S3Store) Load(ctx context.Context, key string) (*Image, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	mime := aws.ToString(out.ContentType)
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	return &Image{Data: data, MIMEType: mime}, nil
}

func (s *S3Store) KeyForURL(url string) (string, bool) {
	base := s.publicURL + "/"
	if !strings.HasPrefix(url, base) {
		return "", false
	}
	key := strings.TrimPrefix(url, base)
	return key, strings.HasPrefix(key, s.prefix)
}
