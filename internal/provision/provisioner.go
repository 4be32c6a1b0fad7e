package provision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

var ErrIndexProvisioning = errors.New("index provisioning failed")

// IndexAdmin is the slice of the search client the provisioner needs.
type IndexAdmin interface {
	IndexExists(ctx context.Context, index string) (bool, error)
	CreateIndex(ctx context.Context, index string, body []byte) error
}

type Provisioner struct {
	admin IndexAdmin
}

func NewProvisioner(admin IndexAdmin) *Provisioner {
	return &Provisioner{admin: admin}
}

// Ensure creates index with mapping when it does not exist. An existing index is left
// untouched, even if its mapping differs.
func (p *Provisioner) Ensure(ctx context.Context, index string, mapping Mapping) error {
	exists, err := p.admin.IndexExists(ctx, index)
	if err != nil {
		return fmt.Errorf("%w: check %s: %w", ErrIndexProvisioning, index, err)
	}
	if exists {
		slog.Info("[Provisioner] Index already exists",
			slog.String("index", index))
		return nil
	}

	body, err := json.Marshal(mapping)
	if err != nil {
		return fmt.Errorf("%w: encode mapping for %s: %w", ErrIndexProvisioning, index, err)
	}
	if err := p.admin.CreateIndex(ctx, index, body); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrIndexProvisioning, index, err)
	}

	slog.Info("[Provisioner] Index created",
		slog.String("index", index))
	return nil
}
