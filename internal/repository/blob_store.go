package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"LunarPull/internal/domain/apperr"
	domrepo "LunarPull/internal/domain/repository"
	applogger "LunarPull/pkg/logger"
)

// AzureBlobStore uploads artifacts to Azure Blob Storage, creating containers on first use.
type AzureBlobStore struct {
	client  *azblob.Client
	l       *applogger.Logger
	mu      sync.Mutex
	ensured map[string]bool
}

func NewAzureBlobStore(connectionString string, l *applogger.Logger) (*AzureBlobStore, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("azure blob client: %w", err)
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &AzureBlobStore{client: client, l: l, ensured: map[string]bool{}}, nil
}

func (s *AzureBlobStore) ensureContainer(ctx context.Context, container string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ensured[container] {
		return nil
	}
	if _, err := s.client.CreateContainer(ctx, container, nil); err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
		return err
	}
	s.ensured[container] = true
	return nil
}

// Upload writes data as a block blob, replacing any existing blob of that name.
func (s *AzureBlobStore) Upload(ctx context.Context, container, name string, data []byte) error {
	if err := s.ensureContainer(ctx, container); err != nil {
		return apperr.Persistence("blob container "+container, err)
	}
	if _, err := s.client.UploadBuffer(ctx, container, name, data, nil); err != nil {
		s.l.Error("blob upload failed",
			applogger.String("container", container),
			applogger.String("blob", name),
			applogger.Error(err),
		)
		return apperr.Persistence("blob upload "+name, err)
	}
	s.l.Info("blob uploaded",
		applogger.String("container", container),
		applogger.String("blob", name),
		applogger.Int("bytes", len(data)),
	)
	return nil
}

// LocalBlobStore mirrors the container layout under a directory.
type LocalBlobStore struct {
	root string
}

func NewLocalBlobStore(root string) *LocalBlobStore { return &LocalBlobStore{root: root} }

func (s *LocalBlobStore) Upload(ctx context.Context, container, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Join(s.root, container)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Persistence("blob container "+container, err)
	}
	if err := os.WriteFile(filepath.Join(dir, filepath.Base(name)), data, 0o644); err != nil {
		return apperr.Persistence("blob upload "+name, err)
	}
	return nil
}

var (
	_ domrepo.BlobStore = (*AzureBlobStore)(nil)
	_ domrepo.BlobStore = (*LocalBlobStore)(nil)
)
