// Package repomanager selects and constructs the metadata store backend.
package repomanager

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/dmitrijs2005/imagevault/internal/repositories/images"
)

const (
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// RepositoryManager owns the store connection and vends the images repository.
type RepositoryManager interface {
	Images() images.Repository
	Close() error
}

// Options selects a backend. AWS is only used by dynamodb, DSN only by postgres.
type Options struct {
	Backend        string
	Table          string
	DynamoEndpoint string
	DSN            string
	AWS            aws.Config
}

// New constructs the manager for opts.Backend.
func New(ctx context.Context, opts Options) (RepositoryManager, error) {
	switch opts.Backend {
	case BackendDynamoDB, "":
		return NewDynamoRepositoryManager(opts.AWS, opts.Table, opts.DynamoEndpoint), nil
	case BackendPostgres:
		return NewPostgresRepositoryManager(ctx, opts.DSN)
	case BackendMemory:
		return NewMemoryRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unknown metadata backend %q", opts.Backend)
	}
}

// DynamoRepositoryManager vends a DynamoDB-backed repository. The SDK client
// needs no explicit close.
type DynamoRepositoryManager struct {
	repo *images.DynamoRepository
}

func NewDynamoRepositoryManager(cfg aws.Config, table, endpoint string) *DynamoRepositoryManager {
	return &DynamoRepositoryManager{repo: images.NewDynamoRepositoryFromConfig(cfg, table, endpoint)}
}

func (m *DynamoRepositoryManager) Images() images.Repository { return m.repo }
func (m *DynamoRepositoryManager) Close() error              { return nil }

// MemoryRepositoryManager vends a process-local repository.
type MemoryRepositoryManager struct {
	repo *images.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{repo: images.NewMemoryRepository()}
}

func (m *MemoryRepositoryManager) Images() images.Repository { return m.repo }
func (m *MemoryRepositoryManager) Close() error              { return nil }
