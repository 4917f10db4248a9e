package store

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// recordRow is the relational shape of a Record. Timestamps are stored as
// unix nanoseconds; the composite index backs the ordered expiry scan.
type recordRow struct {
	GroupName string `gorm:"primaryKey"`
	RecordKey string `gorm:"primaryKey"`
	Value     string
	CreatedNs int64 `gorm:"index:idx_records_expiry,priority:1"`
	TTLNs     int64 `gorm:"index:idx_records_expiry,priority:2"`
}

func (recordRow) TableName() string {
	return "ttl_records"
}

func (r recordRow) record() (Record, error) {
	var value interface{}
	if err := json.Unmarshal([]byte(r.Value), &value); err != nil {
		return Record{}, fmt.Errorf("decode record value: %w", err)
	}
	return Record{
		Group:   r.GroupName,
		Key:     r.RecordKey,
		Value:   value,
		Created: time.Unix(0, r.CreatedNs),
		TTL:     time.Duration(r.TTLNs),
	}, nil
}

type DatabaseStore struct {
	db *gorm.DB
}

func NewDatabaseStore(dsn string) (*DatabaseStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &DatabaseStore{db: db}, nil
}

func (ds *DatabaseStore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (ds *DatabaseStore) Get(group, key string) (Record, bool, error) {
	var row recordRow
	result := ds.db.Where("group_name = ? AND record_key = ?", group, key).First(&row)
	if result.Error == gorm.ErrRecordNotFound {
		return Record{}, false, nil
	}
	if result.Error != nil {
		return Record{}, false, result.Error
	}
	rec, err := row.record()
	if err != nil {
		return Record{}, false, err
	}
	return rec, true, nil
}

func (ds *DatabaseStore) Put(rec Record) error {
	jsonData, err := json.Marshal(rec.Value)
	if err != nil {
		return err
	}

	row := recordRow{
		GroupName: rec.Group,
		RecordKey: rec.Key,
		Value:     string(jsonData),
		CreatedNs: rec.Created.UnixNano(),
		TTLNs:     int64(rec.TTL),
	}

	return ds.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "group_name"}, {Name: "record_key"}},
		UpdateAll: true,
	}).Create(&row).Error
}

func (ds *DatabaseStore) Delete(group, key string) (bool, error) {
	result := ds.db.Delete(&recordRow{}, "group_name = ? AND record_key = ?", group, key)
	return result.RowsAffected > 0, result.Error
}

func (ds *DatabaseStore) DeleteIfCreated(group, key string, created time.Time) (bool, error) {
	result := ds.db.Delete(&recordRow{},
		"group_name = ? AND record_key = ? AND created_ns = ?", group, key, created.UnixNano())
	return result.RowsAffected > 0, result.Error
}

func (ds *DatabaseStore) ScanOrdered(fn func(Record) (bool, error)) error {
	rows, err := ds.db.Model(&recordRow{}).Order("created_ns asc, ttl_ns asc").Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row recordRow
		if err := ds.db.ScanRows(rows, &row); err != nil {
			return err
		}
		rec, err := row.record()
		if err != nil {
			return err
		}
		cont, err := fn(rec)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return rows.Err()
}

func (ds *DatabaseStore) ScanAll(fn func(Record) error) error {
	rows, err := ds.db.Model(&recordRow{}).Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var row recordRow
		if err := ds.db.ScanRows(rows, &row); err != nil {
			return err
		}
		rec, err := row.record()
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}
