package repository

import (
	"biostats-go/internal/models"

	"gorm.io/gorm"
)

// CatalogRepository 数据集目录数据访问层
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository 创建目录Repository
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// ListDatasets 按目录顺序获取数据集及其配置
func (r *CatalogRepository) ListDatasets() ([]models.Dataset, error) {
	var datasets []models.Dataset
	err := r.db.
		Preload("Configs", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Order("position ASC, id ASC").
		Find(&datasets).Error
	return datasets, err
}

// GetDatasetByName 根据名称获取数据集
func (r *CatalogRepository) GetDatasetByName(name string) (*models.Dataset, error) {
	var dataset models.Dataset
	err := r.db.
		Preload("Configs", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, id ASC")
		}).
		Where("name = ?", name).
		First(&dataset).Error
	if err != nil {
		return nil, err
	}
	return &dataset, nil
}

// GetConfig 获取属于某个数据集的配置
func (r *CatalogRepository) GetConfig(datasetName, configName string) (*models.DatasetConfig, error) {
	var cfg models.DatasetConfig
	err := r.db.
		Joins("JOIN datasets ON datasets.id = dataset_configs.dataset_id").
		Where("datasets.name = ? AND dataset_configs.name = ?", datasetName, configName).
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListSplitMetadata 按划分顺序获取配置的元数据
func (r *CatalogRepository) ListSplitMetadata(configID uint) ([]models.SplitMetadata, error) {
	var splits []models.SplitMetadata
	err := r.db.Where("config_id = ?", configID).Order("position ASC, id ASC").Find(&splits).Error
	return splits, err
}

// CountConfigs 统计配置数
func (r *CatalogRepository) CountConfigs() (int64, error) {
	var count int64
	err := r.db.Model(&models.DatasetConfig{}).Count(&count).Error
	return count, err
}

// UpsertDataset 按名称写入数据集、配置和划分元数据
// 已存在的配置按名称更新，划分元数据按 (配置, 划分) 覆盖，已有记录保留
func (r *CatalogRepository) UpsertDataset(dataset *models.Dataset) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Dataset
		err := tx.Where("name = ?", dataset.Name).First(&existing).Error
		switch {
		case err == nil:
			dataset.ID = existing.ID
			dataset.CreatedAt = existing.CreatedAt
			if err := tx.Model(&existing).Updates(map[string]interface{}{
				"display_name": dataset.DisplayName,
				"homepage":     dataset.Homepage,
				"license":      dataset.License,
				"position":     dataset.Position,
			}).Error; err != nil {
				return err
			}
		case err == gorm.ErrRecordNotFound:
			if err := tx.Omit("Configs").Create(dataset).Error; err != nil {
				return err
			}
		default:
			return err
		}

		for i := range dataset.Configs {
			cfg := &dataset.Configs[i]
			cfg.DatasetID = dataset.ID
			if err := upsertConfig(tx, cfg); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertConfig(tx *gorm.DB, cfg *models.DatasetConfig) error {
	var existing models.DatasetConfig
	err := tx.Where("name = ?", cfg.Name).First(&existing).Error
	switch {
	case err == nil:
		cfg.ID = existing.ID
		if err := tx.Model(&existing).Updates(map[string]interface{}{
			"dataset_id": cfg.DatasetID,
			"schema_tag": cfg.SchemaTag,
			"is_local":   cfg.IsLocal,
			"position":   cfg.Position,
		}).Error; err != nil {
			return err
		}
	case err == gorm.ErrRecordNotFound:
		if err := tx.Omit("Splits").Create(cfg).Error; err != nil {
			return err
		}
	default:
		return err
	}

	if err := tx.Where("config_id = ?", cfg.ID).Delete(&models.SplitMetadata{}).Error; err != nil {
		return err
	}
	for i := range cfg.Splits {
		split := &cfg.Splits[i]
		split.ID = 0
		split.ConfigID = cfg.ID
		if err := tx.Create(split).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteDataset 删除数据集及其配置、元数据和记录
func (r *CatalogRepository) DeleteDataset(name string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var dataset models.Dataset
		if err := tx.Where("name = ?", name).First(&dataset).Error; err != nil {
			return err
		}

		var configIDs []uint
		if err := tx.Model(&models.DatasetConfig{}).Where("dataset_id = ?", dataset.ID).Pluck("id", &configIDs).Error; err != nil {
			return err
		}
		if len(configIDs) > 0 {
			if err := tx.Where("config_id IN ?", configIDs).Delete(&models.DatasetRecord{}).Error; err != nil {
				return err
			}
			if err := tx.Where("config_id IN ?", configIDs).Delete(&models.SplitMetadata{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", configIDs).Delete(&models.DatasetConfig{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&dataset).Error
	})
}
