// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sqlite

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/microchain/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func deleteBlocksFrom(db *gorm.DB, num uint32) error {
	if result := db.Where("num >= ?", num).Delete(&models.BlockHeader{}); result.Error != nil {
		return result.Error
	}
	if result := db.Where("block_num >= ?", num).Delete(&models.ReplayFault{}); result.Error != nil {
		return result.Error
	}
	return nil
}

// SetBlock records an accepted block and its replay faults. Records for the
// same or later block numbers come from a discarded branch and are removed
// first.
func (d *MetadataStoreSqlite) SetBlock(
	header *models.BlockHeader,
	faults []models.ReplayFault,
) error {
	err := d.DB().Transaction(func(tx *gorm.DB) error {
		if err := deleteBlocksFrom(tx, header.Num); err != nil {
			return err
		}
		if result := tx.Create(header); result.Error != nil {
			return result.Error
		}
		if len(faults) > 0 {
			if result := tx.Create(&faults); result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("SetBlock: %w", err)
	}
	d.faultsStored.Add(float64(len(faults)))
	return nil
}

// DeleteBlocksFrom removes every header and fault from block num onward
func (d *MetadataStoreSqlite) DeleteBlocksFrom(num uint32) error {
	err := d.DB().Transaction(func(tx *gorm.DB) error {
		return deleteBlocksFrom(tx, num)
	})
	if err != nil {
		return fmt.Errorf("DeleteBlocksFrom: %w", err)
	}
	return nil
}

// GetBlockHeader returns the header for block num, or nil if not found.
func (d *MetadataStoreSqlite) GetBlockHeader(
	num uint32,
) (*models.BlockHeader, error) {
	var ret models.BlockHeader
	result := d.DB().Where("num = ?", num).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetBlockHeader: query: %w", result.Error)
	}
	return &ret, nil
}

// GetBlockHeaders returns up to limit headers with num >= from, ascending
func (d *MetadataStoreSqlite) GetBlockHeaders(
	from uint32,
	limit int,
) ([]models.BlockHeader, error) {
	var ret []models.BlockHeader
	result := d.DB().
		Where("num >= ?", from).
		Order("num").
		Limit(limit).
		Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf("GetBlockHeaders: query: %w", result.Error)
	}
	return ret, nil
}

// GetReplayFaults returns up to limit faults with block num >= from, in
// replay order
func (d *MetadataStoreSqlite) GetReplayFaults(
	from uint32,
	limit int,
) ([]models.ReplayFault, error) {
	var ret []models.ReplayFault
	result := d.DB().
		Where("block_num >= ?", from).
		Order("block_num").
		Order("id").
		Limit(limit).
		Find(&ret)
	if result.Error != nil {
		return nil, fmt.Errorf("GetReplayFaults: query: %w", result.Error)
	}
	return ret, nil
}

// GetSyncState returns the value stored for key, or "" if not set
func (d *MetadataStoreSqlite) GetSyncState(key string) (string, error) {
	var ret models.SyncState
	result := d.DB().Where("sync_key = ?", key).First(&ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("GetSyncState: query: %w", result.Error)
	}
	return ret.Value, nil
}

func (d *MetadataStoreSqlite) SetSyncState(key, value string) error {
	tmpItem := models.SyncState{
		Key:   key,
		Value: value,
	}
	result := d.DB().Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sync_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&tmpItem)
	if result.Error != nil {
		return fmt.Errorf("SetSyncState: %w", result.Error)
	}
	return nil
}

// Reset removes every record
func (d *MetadataStoreSqlite) Reset() error {
	err := d.DB().Transaction(func(tx *gorm.DB) error {
		for _, model := range models.MigrateModels {
			result := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).
				Delete(model)
			if result.Error != nil {
				return result.Error
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("Reset: %w", err)
	}
	return nil
}
