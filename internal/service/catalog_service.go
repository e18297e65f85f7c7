package service

import (
	"errors"
	"fmt"

	"biostats-go/internal/config"
	"biostats-go/internal/dto"
	"biostats-go/internal/metrics"
	"biostats-go/internal/models"
	"biostats-go/internal/repository"
	"biostats-go/internal/schema"
	"biostats-go/internal/stats"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrDatasetNotFound 目录中没有可用的数据集
	ErrDatasetNotFound = errors.New("数据集不存在")
	// ErrConfigNotFound 目录中没有可用的配置
	ErrConfigNotFound = errors.New("配置不存在")
)

// ConfigHelper 目录中一个可展示的配置
type ConfigHelper struct {
	DatasetName string        `json:"dataset_name"`
	ConfigName  string        `json:"config_name"`
	Schema      schema.Schema `json:"schema"`
	IsLocal     bool          `json:"is_local"`
	ConfigID    uint          `json:"-"`
}

// CatalogService 数据集目录服务
type CatalogService struct {
	repo      *repository.CatalogRepository
	excluded  map[string]bool
	collector *metrics.Collector
	logger    *logrus.Logger
}

// NewCatalogService 创建目录服务
func NewCatalogService(repo *repository.CatalogRepository, cfg config.CatalogConfig, collector *metrics.Collector, logger *logrus.Logger) *CatalogService {
	excluded := make(map[string]bool, len(cfg.ExcludedDatasets))
	for _, name := range cfg.ExcludedDatasets {
		excluded[name] = true
	}
	return &CatalogService{
		repo:      repo,
		excluded:  excluded,
		collector: collector,
		logger:    logger,
	}
}

// Helpers 返回过滤后的配置：去掉排除的数据集、非 BigBio schema 和本地配置
func (s *CatalogService) Helpers() ([]ConfigHelper, error) {
	datasets, err := s.repo.ListDatasets()
	if err != nil {
		return nil, fmt.Errorf("读取目录失败: %w", err)
	}

	helpers := make([]ConfigHelper, 0)
	for _, ds := range datasets {
		if s.excluded[ds.Name] {
			continue
		}
		for _, cfg := range ds.Configs {
			sch, ok := s.displayable(ds.Name, &cfg)
			if !ok {
				continue
			}
			helpers = append(helpers, ConfigHelper{
				DatasetName: ds.Name,
				ConfigName:  cfg.Name,
				Schema:      sch,
				IsLocal:     cfg.IsLocal,
				ConfigID:    cfg.ID,
			})
		}
	}
	return helpers, nil
}

// Refresh 统计目录中的可选配置并更新指标，启动时和目录变更后调用
func (s *CatalogService) Refresh() error {
	helpers, err := s.Helpers()
	if err != nil {
		return err
	}
	s.logger.Infof("loaded %d configs from %d datasets", len(helpers), len(datasetNames(helpers)))
	if s.collector != nil {
		s.collector.SetCatalogConfigs(len(helpers))
	}
	return nil
}

// DatasetNames 数据集选择器的选项，按目录顺序去重
func (s *CatalogService) DatasetNames() ([]string, error) {
	helpers, err := s.Helpers()
	if err != nil {
		return nil, err
	}
	return datasetNames(helpers), nil
}

// ForDataset 返回某个数据集的全部可用配置
func (s *CatalogService) ForDataset(name string) ([]ConfigHelper, error) {
	helpers, err := s.Helpers()
	if err != nil {
		return nil, err
	}
	return configsFor(helpers, name)
}

func datasetNames(helpers []ConfigHelper) []string {
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, h := range helpers {
		if !seen[h.DatasetName] {
			seen[h.DatasetName] = true
			names = append(names, h.DatasetName)
		}
	}
	return names
}

func configsFor(helpers []ConfigHelper, name string) ([]ConfigHelper, error) {
	result := make([]ConfigHelper, 0)
	for _, h := range helpers {
		if h.DatasetName == name {
			result = append(result, h)
		}
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	return result, nil
}

// DatasetInfo 数据集的描述信息和可展示的配置
func (s *CatalogService) DatasetInfo(name string) (*dto.DatasetInfo, error) {
	if s.excluded[name] {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	ds, err := s.repo.GetDatasetByName(name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("读取数据集失败: %w", err)
	}

	info := &dto.DatasetInfo{
		Name:        ds.Name,
		DisplayName: ds.DisplayName,
		Homepage:    ds.Homepage,
		License:     ds.License,
		Configs:     make([]dto.ConfigOption, 0, len(ds.Configs)),
	}
	for _, cfg := range ds.Configs {
		if sch, ok := s.displayable(ds.Name, &cfg); ok {
			info.Configs = append(info.Configs, dto.ConfigOption{Name: cfg.Name, Schema: sch.Tag()})
		}
	}
	if len(info.Configs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	return info, nil
}

// displayable 只展示 BigBio schema 的非本地配置
func (s *CatalogService) displayable(dataset string, cfg *models.DatasetConfig) (schema.Schema, bool) {
	if !schema.IsBigBio(cfg.SchemaTag) || cfg.IsLocal {
		return 0, false
	}
	sch, err := schema.Parse(cfg.SchemaTag)
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"dataset": dataset,
			"config":  cfg.Name,
			"schema":  cfg.SchemaTag,
		}).Warn("跳过不支持的schema")
		return 0, false
	}
	return sch, true
}

// GetMetadata 读取配置的划分元数据
func (s *CatalogService) GetMetadata(h *ConfigHelper) (stats.Metadata, error) {
	splits, err := s.repo.ListSplitMetadata(h.ConfigID)
	if err != nil {
		return nil, fmt.Errorf("读取元数据失败: %w", err)
	}
	md := make(stats.Metadata, 0, len(splits))
	for _, sp := range splits {
		md = append(md, stats.SplitMetadata{
			Split:      sp.Split,
			Attributes: []stats.Attribute(sp.Attributes),
		})
	}
	return md, nil
}

// ResolveConfig 查找目录中的配置，不做展示过滤，用于写入记录
func (s *CatalogService) ResolveConfig(datasetName, configName string) (*models.DatasetConfig, error) {
	cfg, err := s.repo.GetConfig(datasetName, configName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", ErrConfigNotFound, datasetName, configName)
	}
	if err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}
	return cfg, nil
}

// ImportManifest 导入YAML目录清单
func (s *CatalogService) ImportManifest(data []byte) (*dto.ImportSummary, error) {
	datasets, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}

	summary := &dto.ImportSummary{
		Datasets: make([]string, 0, len(datasets)),
		Entries:  make([]dto.ImportedConfig, 0),
	}
	for i := range datasets {
		ds := &datasets[i]
		if err := s.repo.UpsertDataset(ds); err != nil {
			return nil, fmt.Errorf("写入数据集 %s 失败: %w", ds.Name, err)
		}
		summary.Datasets = append(summary.Datasets, ds.Name)
		summary.Configs += len(ds.Configs)
		for _, cfg := range ds.Configs {
			entry := dto.ImportedConfig{Dataset: ds.Name, Config: cfg.Name, Splits: make([]string, 0, len(cfg.Splits))}
			for _, sp := range cfg.Splits {
				entry.Splits = append(entry.Splits, sp.Split)
			}
			summary.Splits += len(cfg.Splits)
			summary.Entries = append(summary.Entries, entry)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"datasets": len(summary.Datasets),
		"configs":  summary.Configs,
		"splits":   summary.Splits,
	}).Info("目录清单导入完成")
	if err := s.Refresh(); err != nil {
		return nil, err
	}
	return summary, nil
}

// DeleteDataset 删除数据集及其全部内容
func (s *CatalogService) DeleteDataset(name string) error {
	err := s.repo.DeleteDataset(name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("删除数据集失败: %w", err)
	}
	s.logger.WithField("dataset", name).Info("数据集已删除")
	return s.Refresh()
}
