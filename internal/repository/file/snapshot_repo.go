package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/gstech/itc-compliance/internal/domain"
)

// SnapshotRepository loads entity snapshots from a directory of JSON files,
// one file per collection (taxpayers.json, invoices.json, mismatches.json,
// returns.json, payments.json).
type SnapshotRepository struct {
	dir    string
	logger *zap.Logger
}

// NewSnapshotRepository creates a file-backed snapshot loader.
func NewSnapshotRepository(dir string, logger *zap.Logger) *SnapshotRepository {
	return &SnapshotRepository{dir: dir, logger: logger}
}

// Load reads every collection file in the directory. A missing file is not
// an error: partial snapshots are normal during onboarding, so the
// collection is left empty and a warning logged.
func (r *SnapshotRepository) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{LoadedAt: time.Now().UTC()}

	if err := r.readCollection(ctx, "taxpayers.json", &snap.Taxpayers); err != nil {
		return nil, err
	}
	if err := r.readCollection(ctx, "invoices.json", &snap.Invoices); err != nil {
		return nil, err
	}
	if err := r.readCollection(ctx, "mismatches.json", &snap.Mismatches); err != nil {
		return nil, err
	}
	if err := r.readCollection(ctx, "returns.json", &snap.Returns); err != nil {
		return nil, err
	}
	if err := r.readCollection(ctx, "payments.json", &snap.Payments); err != nil {
		return nil, err
	}

	return snap, nil
}

func (r *SnapshotRepository) readCollection(ctx context.Context, name string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(r.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("snapshot collection file missing, loading empty",
				zap.String("path", path))
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
