package repository

import (
	"biostats-go/internal/models"

	"gorm.io/gorm"
)

const recordBatchSize = 500

// RecordRepository 数据集记录数据访问层
type RecordRepository struct {
	db *gorm.DB
}

// NewRecordRepository 创建记录Repository
func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// ReplaceSplit 用给定记录整体替换一个划分的内容
func (r *RecordRepository) ReplaceSplit(configID uint, split string, contents []models.JSONMap) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("config_id = ? AND split = ?", configID, split).Delete(&models.DatasetRecord{}).Error; err != nil {
			return err
		}
		return insertRecords(tx, configID, split, 0, contents)
	})
}

// AppendRecords 在划分末尾追加记录，返回追加后的记录总数
func (r *RecordRepository) AppendRecords(configID uint, split string, contents []models.JSONMap) (int64, error) {
	var total int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var next struct{ N int }
		if err := tx.Model(&models.DatasetRecord{}).
			Select("COALESCE(MAX(position) + 1, 0) AS n").
			Where("config_id = ? AND split = ?", configID, split).
			Scan(&next).Error; err != nil {
			return err
		}
		if err := insertRecords(tx, configID, split, next.N, contents); err != nil {
			return err
		}
		return tx.Model(&models.DatasetRecord{}).
			Where("config_id = ? AND split = ?", configID, split).
			Count(&total).Error
	})
	return total, err
}

func insertRecords(tx *gorm.DB, configID uint, split string, start int, contents []models.JSONMap) error {
	if len(contents) == 0 {
		return nil
	}
	records := make([]models.DatasetRecord, len(contents))
	for i, content := range contents {
		records[i] = models.DatasetRecord{
			ConfigID: configID,
			Split:    split,
			Position: start + i,
			Content:  content,
		}
	}
	return tx.CreateInBatches(records, recordBatchSize).Error
}

// ListSplits 按首次写入顺序获取配置下的划分名
func (r *RecordRepository) ListSplits(configID uint) ([]string, error) {
	var rows []struct {
		Split string
		First uint
	}
	err := r.db.Model(&models.DatasetRecord{}).
		Select("split, MIN(id) AS first").
		Where("config_id = ?", configID).
		Group("split").
		Order("first ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	splits := make([]string, len(rows))
	for i, row := range rows {
		splits[i] = row.Split
	}
	return splits, nil
}

// ListBySplit 按位置顺序获取划分内全部记录
func (r *RecordRepository) ListBySplit(configID uint, split string) ([]models.DatasetRecord, error) {
	var records []models.DatasetRecord
	err := r.db.
		Where("config_id = ? AND split = ?", configID, split).
		Order("position ASC").
		Find(&records).Error
	return records, err
}

// CountBySplit 统计划分内记录数
func (r *RecordRepository) CountBySplit(configID uint, split string) (int64, error) {
	var count int64
	err := r.db.Model(&models.DatasetRecord{}).
		Where("config_id = ? AND split = ?", configID, split).
		Count(&count).Error
	return count, err
}
