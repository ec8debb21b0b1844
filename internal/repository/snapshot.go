package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/leak-analysis/internal/graph"
	"github.com/leak-analysis/pkg/model"
	"github.com/leak-analysis/pkg/telemetry"
)

// Snapshot errors.
var (
	ErrRunNotFound = errors.New("run not found")
	ErrRunExists   = errors.New("run already exists")
)

const insertBatchSize = 500

// GormSnapshotRepository implements SnapshotRepository using GORM.
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository.
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// SaveSnapshot writes the run header and all datums, references and
// subscripts in one transaction.
func (r *GormSnapshotRepository) SaveSnapshot(ctx context.Context, name, source string, g *graph.Graph) (run *Run, err error) {
	ctx, span := telemetry.Start(ctx, telemetry.PhaseSaveSnapshot,
		telemetry.KeyRunName.String(name),
		telemetry.KeyDatums.Int(g.Len()),
	)
	defer func() { telemetry.Finish(span, err) }()

	var existing int64
	if err := r.db.WithContext(ctx).Model(&AnalysisRun{}).Where("name = ?", name).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check run %q: %w", name, err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunExists, name)
	}

	stats := g.Stats()
	header := AnalysisRun{
		Name:   name,
		Source: source,
		Datums: stats.Datums,
		Edges:  stats.Edges,
		Leaked: stats.Leaked,
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&header).Error; err != nil {
			return fmt.Errorf("failed to create run: %w", err)
		}

		datums := g.Datums()
		records := make([]DatumRecord, 0, len(datums))
		var refs []ReferenceRecord
		var subs []SubscriptRecord
		for _, d := range datums {
			records = append(records, newDatumRecord(header.ID, d))
			for i, ref := range d.References {
				refs = append(refs, ReferenceRecord{
					RunID:  header.ID,
					Source: int64(d.ID),
					Seq:    i,
					Label:  ref.Label,
					Target: int64(ref.Target),
				})
			}
			for i, sub := range d.Subscripts {
				subs = append(subs, SubscriptRecord{
					RunID:   header.ID,
					DatumID: int64(d.ID),
					Seq:     i,
					Key:     sub.Key,
					Value:   sub.Value,
				})
			}
		}

		if len(records) > 0 {
			if err := tx.CreateInBatches(records, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to store datums: %w", err)
			}
		}
		if len(refs) > 0 {
			if err := tx.CreateInBatches(refs, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to store references: %w", err)
			}
		}
		if len(subs) > 0 {
			if err := tx.CreateInBatches(subs, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to store subscripts: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return header.ToRun(), nil
}

// LoadSnapshot rebuilds a finalized graph. References keep their stored
// order and the reverse index is recomputed.
func (r *GormSnapshotRepository) LoadSnapshot(ctx context.Context, name string) (g *graph.Graph, err error) {
	ctx, span := telemetry.Start(ctx, telemetry.PhaseLoadSnapshot, telemetry.KeyRunName.String(name))
	defer func() { telemetry.Finish(span, err) }()

	header, err := r.findRun(ctx, name)
	if err != nil {
		return nil, err
	}

	var records []DatumRecord
	if err := r.db.WithContext(ctx).Where("run_id = ?", header.ID).Order("datum_id ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load datums: %w", err)
	}

	var refs []ReferenceRecord
	if err := r.db.WithContext(ctx).Where("run_id = ?", header.ID).Order("source ASC, seq ASC").Find(&refs).Error; err != nil {
		return nil, fmt.Errorf("failed to load references: %w", err)
	}

	var subs []SubscriptRecord
	if err := r.db.WithContext(ctx).Where("run_id = ?", header.ID).Order("datum_id ASC, seq ASC").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load subscripts: %w", err)
	}

	byID := make(map[model.DatumID]*model.Datum, len(records))
	datums := make([]*model.Datum, 0, len(records))
	for i := range records {
		d := records[i].ToModel()
		byID[d.ID] = d
		datums = append(datums, d)
	}

	for _, ref := range refs {
		d, ok := byID[model.DatumID(ref.Source)]
		if !ok {
			continue
		}
		d.References = append(d.References, model.Reference{Label: ref.Label, Target: model.DatumID(ref.Target)})
	}
	for _, sub := range subs {
		d, ok := byID[model.DatumID(sub.DatumID)]
		if !ok {
			continue
		}
		d.Subscripts = append(d.Subscripts, model.Subscript{Key: sub.Key, Value: sub.Value})
	}

	return graph.FromDatums(datums), nil
}

// ListRuns returns every stored run, newest first.
func (r *GormSnapshotRepository) ListRuns(ctx context.Context) ([]*Run, error) {
	var rows []AnalysisRun
	if err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	runs := make([]*Run, len(rows))
	for i := range rows {
		runs[i] = rows[i].ToRun()
	}
	return runs, nil
}

// DeleteRun removes a run with its datums, references and subscripts.
func (r *GormSnapshotRepository) DeleteRun(ctx context.Context, name string) error {
	header, err := r.findRun(ctx, name)
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, m := range []interface{}{&SubscriptRecord{}, &ReferenceRecord{}, &DatumRecord{}} {
			if err := tx.Where("run_id = ?", header.ID).Delete(m).Error; err != nil {
				return fmt.Errorf("failed to delete run %q: %w", name, err)
			}
		}
		if err := tx.Delete(&AnalysisRun{}, header.ID).Error; err != nil {
			return fmt.Errorf("failed to delete run %q: %w", name, err)
		}
		return nil
	})
}

func (r *GormSnapshotRepository) findRun(ctx context.Context, name string) (*AnalysisRun, error) {
	var header AnalysisRun
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&header).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, name)
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &header, nil
}
