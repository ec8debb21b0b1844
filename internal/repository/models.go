package repository

import (
	"time"

	"github.com/leak-analysis/pkg/model"
)

// AnalysisRun is the header row of a stored snapshot.
type AnalysisRun struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;type:varchar(128);uniqueIndex;not null"`
	Source    string    `gorm:"column:source;type:varchar(1024)"`
	Datums    int       `gorm:"column:datums"`
	Edges     int       `gorm:"column:edges"`
	Leaked    int       `gorm:"column:leaked"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName returns the table name for AnalysisRun.
func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// ToRun converts the row to a Run.
func (r *AnalysisRun) ToRun() *Run {
	return &Run{
		ID:        r.ID,
		Name:      r.Name,
		Source:    r.Source,
		Datums:    r.Datums,
		Edges:     r.Edges,
		Leaked:    r.Leaked,
		CreatedAt: r.CreatedAt,
	}
}

// DatumRecord stores one datum of a run.
type DatumRecord struct {
	ID            int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID         int64   `gorm:"column:run_id;index:idx_datum_run,priority:1;not null"`
	DatumID       int64   `gorm:"column:datum_id;index:idx_datum_run,priority:2;not null"`
	Name          string  `gorm:"column:name;type:varchar(255)"`
	Kind          string  `gorm:"column:kind;type:varchar(64);index"`
	KeyType       string  `gorm:"column:key_type;type:varchar(64)"`
	ValueType     string  `gorm:"column:value_type;type:varchar(64)"`
	Value         *string `gorm:"column:value;type:text"`
	ReadRefcount  *int64  `gorm:"column:read_refcount"`
	WriteRefcount *int64  `gorm:"column:write_refcount"`
	Leaked        bool    `gorm:"column:leaked"`
	Freed         bool    `gorm:"column:freed"`
}

// TableName returns the table name for DatumRecord.
func (DatumRecord) TableName() string {
	return "datums"
}

// ToModel converts the row to a datum without references or subscripts.
func (r *DatumRecord) ToModel() *model.Datum {
	return &model.Datum{
		ID:            model.DatumID(r.DatumID),
		Name:          r.Name,
		Kind:          r.Kind,
		KeyType:       r.KeyType,
		ValueType:     r.ValueType,
		Value:         r.Value,
		ReadRefcount:  r.ReadRefcount,
		WriteRefcount: r.WriteRefcount,
		Leaked:        r.Leaked,
		Freed:         r.Freed,
	}
}

func newDatumRecord(runID int64, d *model.Datum) DatumRecord {
	return DatumRecord{
		RunID:         runID,
		DatumID:       int64(d.ID),
		Name:          d.Name,
		Kind:          d.Kind,
		KeyType:       d.KeyType,
		ValueType:     d.ValueType,
		Value:         d.Value,
		ReadRefcount:  d.ReadRefcount,
		WriteRefcount: d.WriteRefcount,
		Leaked:        d.Leaked,
		Freed:         d.Freed,
	}
}

// ReferenceRecord stores one outgoing edge. Seq keeps the decoder order.
type ReferenceRecord struct {
	ID     int64   `gorm:"column:id;primaryKey;autoIncrement"`
	RunID  int64   `gorm:"column:run_id;index:idx_ref_run,priority:1;not null"`
	Source int64   `gorm:"column:source;index:idx_ref_run,priority:2;not null"`
	Seq    int     `gorm:"column:seq;not null"`
	Label  *string `gorm:"column:label;type:varchar(255)"`
	Target int64   `gorm:"column:target;not null"`
}

// TableName returns the table name for ReferenceRecord.
func (ReferenceRecord) TableName() string {
	return "datum_references"
}

// SubscriptRecord stores one container subscript store.
type SubscriptRecord struct {
	ID      int64  `gorm:"column:id;primaryKey;autoIncrement"`
	RunID   int64  `gorm:"column:run_id;index:idx_sub_run,priority:1;not null"`
	DatumID int64  `gorm:"column:datum_id;index:idx_sub_run,priority:2;not null"`
	Seq     int    `gorm:"column:seq;not null"`
	Key     string `gorm:"column:sub_key;type:varchar(255)"`
	Value   string `gorm:"column:sub_value;type:text"`
}

// TableName returns the table name for SubscriptRecord.
func (SubscriptRecord) TableName() string {
	return "datum_subscripts"
}

// Models lists every table the snapshot store needs, in migration order.
func Models() []interface{} {
	return []interface{}{
		&AnalysisRun{},
		&DatumRecord{},
		&ReferenceRecord{},
		&SubscriptRecord{},
	}
}
