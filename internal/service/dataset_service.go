package service

import (
	"context"
	"fmt"

	"biostats-go/internal/dto"
	"biostats-go/internal/metrics"
	"biostats-go/internal/models"
	"biostats-go/internal/repository"
	"biostats-go/internal/stats"
	"biostats-go/internal/utils"

	"github.com/sirupsen/logrus"
)

// 记录来源，用于指标标签
const (
	SourceUpload = "upload"
	SourceHub    = "hub"
	SourceIngest = "ingest"
)

// DatasetService 数据集内容服务
type DatasetService struct {
	catalog   *CatalogService
	records   *repository.RecordRepository
	collector *metrics.Collector
	logger    *logrus.Logger
}

// NewDatasetService 创建数据集内容服务
func NewDatasetService(catalog *CatalogService, records *repository.RecordRepository, collector *metrics.Collector, logger *logrus.Logger) *DatasetService {
	return &DatasetService{
		catalog:   catalog,
		records:   records,
		collector: collector,
		logger:    logger,
	}
}

// LoadDataset 读取某个配置的全部划分，划分按首次写入顺序，记录按位置顺序
func (s *DatasetService) LoadDataset(ctx context.Context, datasetName, configName string) (stats.Dataset, error) {
	cfg, err := s.catalog.ResolveConfig(datasetName, configName)
	if err != nil {
		return nil, err
	}

	splits, err := s.records.ListSplits(cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("读取划分失败: %w", err)
	}

	dataset := make(stats.Dataset, 0, len(splits))
	for _, name := range splits {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := s.records.ListBySplit(cfg.ID, name)
		if err != nil {
			return nil, fmt.Errorf("读取划分 %s 失败: %w", name, err)
		}
		split := stats.Split{Name: name, Records: make([]stats.Record, len(rows))}
		for i, row := range rows {
			split.Records[i] = stats.Record(row.Content)
		}
		dataset = append(dataset, split)
	}
	return dataset, nil
}

// ImportSplitJSONL 用JSONL内容替换一个划分
func (s *DatasetService) ImportSplitJSONL(datasetName, configName, split string, data []byte) (*dto.SplitImportResult, error) {
	items, err := utils.ParseJSONL(data)
	if err != nil {
		return nil, err
	}
	return s.ReplaceSplit(datasetName, configName, split, items, SourceUpload)
}

// ReplaceSplit 整体替换一个划分的记录
func (s *DatasetService) ReplaceSplit(datasetName, configName, split string, items []map[string]interface{}, source string) (*dto.SplitImportResult, error) {
	if err := utils.ValidateVar("split", split, "split_name"); err != nil {
		return nil, err
	}
	cfg, err := s.catalog.ResolveConfig(datasetName, configName)
	if err != nil {
		return nil, err
	}

	if err := s.records.ReplaceSplit(cfg.ID, split, toContents(items)); err != nil {
		return nil, fmt.Errorf("写入记录失败: %w", err)
	}
	s.recordImport(source, datasetName, configName, split, len(items))

	return &dto.SplitImportResult{
		Dataset: datasetName,
		Config:  configName,
		Split:   split,
		Records: int64(len(items)),
	}, nil
}

// AppendRecords 在划分末尾追加记录
func (s *DatasetService) AppendRecords(req *dto.IngestRecordsRequest) (*dto.SplitImportResult, error) {
	cfg, err := s.catalog.ResolveConfig(req.Dataset, req.Config)
	if err != nil {
		return nil, err
	}

	total, err := s.records.AppendRecords(cfg.ID, req.Split, toContents(req.Records))
	if err != nil {
		return nil, fmt.Errorf("写入记录失败: %w", err)
	}
	s.recordImport(SourceIngest, req.Dataset, req.Config, req.Split, len(req.Records))

	return &dto.SplitImportResult{
		Dataset: req.Dataset,
		Config:  req.Config,
		Split:   req.Split,
		Records: total,
	}, nil
}

func (s *DatasetService) recordImport(source, datasetName, configName, split string, n int) {
	if s.collector != nil {
		s.collector.RecordImport(source, n)
	}
	s.logger.WithFields(logrus.Fields{
		"source":  source,
		"dataset": datasetName,
		"config":  configName,
		"split":   split,
		"records": n,
	}).Info("记录已写入")
}

func toContents(items []map[string]interface{}) []models.JSONMap {
	contents := make([]models.JSONMap, len(items))
	for i, item := range items {
		contents[i] = models.JSONMap(item)
	}
	return contents
}
