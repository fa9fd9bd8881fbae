// Package service pumps evaluation queue queries through the platform's
// paged query endpoint
package service

import (
	"context"
	"fmt"

	"challengeutils/internal/adapters/synapse"
	perr "challengeutils/internal/platform/errors"
)

// RemotePort is the slice of the platform client the query pump needs
type RemotePort interface {
	QueueQuery(ctx context.Context, query string) (synapse.QueryPage, error)
}

// Service runs evaluation queue queries page by page
type Service struct {
	Remote   RemotePort
	PageSize int64
}

const defaultPageSize = 50

// New constructs a query service
func New(remote RemotePort) *Service {
	return &Service{Remote: remote, PageSize: defaultPageSize}
}

// Run executes query with explicit paging appended, calling fn once per row
// with the headers zipped onto the values. The caller's query must not carry
// its own limit or offset clause. Iteration stops on fn error or when a page
// comes back short
func (s *Service) Run(ctx context.Context, query string, offset int64, fn func(map[string]string) error) error {
	if query == "" {
		return perr.InvalidArgf("empty query")
	}
	size := s.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	for {
		paged := fmt.Sprintf("%s limit %d offset %d", query, size, offset)
		page, err := s.Remote.QueueQuery(ctx, paged)
		if err != nil {
			return err
		}
		for _, row := range page.Rows {
			if err := fn(page.Map(row)); err != nil {
				return err
			}
		}
		if int64(len(page.Rows)) < size {
			return nil
		}
		offset += int64(len(page.Rows))
	}
}

// Headers runs the smallest possible page of query and returns its header row
func (s *Service) Headers(ctx context.Context, query string) ([]string, error) {
	if query == "" {
		return nil, perr.InvalidArgf("empty query")
	}
	page, err := s.Remote.QueueQuery(ctx, query+" limit 1 offset 0")
	if err != nil {
		return nil, err
	}
	return page.Headers, nil
}
