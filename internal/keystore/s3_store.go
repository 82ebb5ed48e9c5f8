package keystore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config содержит параметры подключения к S3/MinIO.
type S3Config struct {
	Endpoint        string // адрес MinIO (например, "localhost:9000")
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
	Bucket          string
	Prefix          string // необязательный префикс ключей объектов
}

var (
	errNoObject     = errors.New("object does not exist")
	errObjectExists = errors.New("object already exists")
)

// objectAPI — операции над объектами бакета, которые нужны хранилищу ключей.
type objectAPI interface {
	get(ctx context.Context, name string) ([]byte, error)
	// putIfAbsent пишет объект только если его нет, иначе errObjectExists.
	putIfAbsent(ctx context.Context, name string, data []byte) error
	remove(ctx context.Context, name string) error
}

// minioObjects — objectAPI поверх minio-go.
type minioObjects struct {
	client *minio.Client
	bucket string
}

func errorCode(err error) string {
	return minio.ToErrorResponse(err).Code
}

func (m *minioObjects) get(ctx context.Context, name string) ([]byte, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		if errorCode(err) == "NoSuchKey" {
			return nil, errNoObject
		}
		return nil, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if errorCode(err) == "NoSuchKey" {
			return nil, errNoObject
		}
		return nil, err
	}
	return data, nil
}

func (m *minioObjects) putIfAbsent(ctx context.Context, name string, data []byte) error {
	opts := minio.PutObjectOptions{ContentType: "application/octet-stream"}
	// If-None-Match: * — сервер отклонит запись поверх существующего объекта
	opts.SetMatchETagExcept("*")
	_, err := m.client.PutObject(ctx, m.bucket, name, bytes.NewReader(data), int64(len(data)), opts)
	switch errorCode(err) {
	case "":
		return err
	case "PreconditionFailed", "ConditionalRequestConflict":
		return errObjectExists
	default:
		return err
	}
}

func (m *minioObjects) remove(ctx context.Context, name string) error {
	err := m.client.RemoveObject(ctx, m.bucket, name, minio.RemoveObjectOptions{})
	if err != nil && errorCode(err) != "NoSuchKey" {
		return err
	}
	return nil
}

// S3Store хранит обёрнутые ключи как объекты <prefix>/keys/<userID>.key.
// Бакет должен быть приватным: доступ к объектам только у сервисной учётной записи.
type S3Store struct {
	objects objectAPI
	prefix  string
	w       *Wrapper
}

var _ Store = (*S3Store)(nil)

// NewS3Store подключается к MinIO и создаёт бакет при необходимости.
func NewS3Store(ctx context.Context, cfg S3Config, w *Wrapper) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("empty s3 bucket")
	}
	if w == nil {
		return nil, errors.New("nil key wrapper")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", cfg.Bucket, err)
		}
	}
	return &S3Store{objects: &minioObjects{client: client, bucket: cfg.Bucket}, prefix: cfg.Prefix, w: w}, nil
}

func (s *S3Store) objectName(userID int64) string {
	return path.Join(s.prefix, "keys", keyName(userID))
}

// Save загружает ключ, только если объекта ещё нет. Повтор с тем же ключом успешен.
// Ошибка чтения, отличная от отсутствия объекта, возвращается как есть: запись не выполняется.
func (s *S3Store) Save(ctx context.Context, userID int64, key []byte) error {
	blob, err := s.w.Wrap(userID, key)
	if err != nil {
		return err
	}
	name := s.objectName(userID)

	switch err := s.sameAsStored(ctx, userID, key); {
	case err == nil:
		return nil
	case !errors.Is(err, errNoObject):
		return err
	}

	if err := s.objects.putIfAbsent(ctx, name, blob); err != nil {
		if errors.Is(err, errObjectExists) {
			// параллельный Save успел раньше
			return s.sameAsStored(ctx, userID, key)
		}
		return fmt.Errorf("put key object: %w", err)
	}
	return nil
}

// sameAsStored сравнивает key с сохранённым ключом: nil при совпадении,
// ErrKeyConflict при другом или нерасшифровываемом объекте, errNoObject если объекта нет.
func (s *S3Store) sameAsStored(ctx context.Context, userID int64, key []byte) error {
	data, err := s.objects.get(ctx, s.objectName(userID))
	if err != nil {
		if errors.Is(err, errNoObject) {
			return errNoObject
		}
		return fmt.Errorf("get key object: %w", err)
	}
	stored, err := s.w.Unwrap(userID, data)
	if err != nil || !bytes.Equal(stored, key) {
		return ErrKeyConflict
	}
	return nil
}

// Load скачивает и расшифровывает ключ.
func (s *S3Store) Load(ctx context.Context, userID int64) ([]byte, error) {
	data, err := s.objects.get(ctx, s.objectName(userID))
	if err != nil {
		if errors.Is(err, errNoObject) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("%w: get key object: %w", ErrKeyNotFound, err)
	}
	key, err := s.w.Unwrap(userID, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyNotFound, err)
	}
	return key, nil
}

// Delete удаляет объект ключа.
func (s *S3Store) Delete(ctx context.Context, userID int64) error {
	if err := s.objects.remove(ctx, s.objectName(userID)); err != nil {
		return fmt.Errorf("remove key object: %w", err)
	}
	return nil
}
