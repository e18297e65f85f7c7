package service

import (
	"context"
	"errors"
	"fmt"

	"biostats-go/internal/dto"
	"biostats-go/pkg/hub_client"
	"biostats-go/pkg/redis_limiter"

	"github.com/sirupsen/logrus"
)

// ErrHubDisabled 未配置远程仓库
var ErrHubDisabled = errors.New("未配置远程数据集仓库")

const hubLimiterKey = "hub"

// HubService 从远程仓库导入目录和记录
type HubService struct {
	client   *hub_client.HubClient
	catalog  *CatalogService
	datasets *DatasetService
	limiter  *redis_limiter.RedisLimiter
	logger   *logrus.Logger
}

// NewHubService 创建远程导入服务，client 为 nil 时导入被禁用
func NewHubService(client *hub_client.HubClient, catalog *CatalogService, datasets *DatasetService, limiter *redis_limiter.RedisLimiter, logger *logrus.Logger) *HubService {
	return &HubService{
		client:   client,
		catalog:  catalog,
		datasets: datasets,
		limiter:  limiter,
		logger:   logger,
	}
}

// ImportDataset 下载数据集的目录清单并导入其中每个配置、每个划分的记录
func (s *HubService) ImportDataset(ctx context.Context, name string) (*dto.HubImportResult, error) {
	if s.client == nil {
		return nil, ErrHubDisabled
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx, hubLimiterKey); err != nil {
			return nil, fmt.Errorf("获取并发槽位失败: %w", err)
		}
		defer s.limiter.Release(context.Background(), hubLimiterKey)
	}

	manifest, err := s.client.FetchManifest(ctx, name)
	if err != nil {
		return nil, err
	}
	summary, err := s.catalog.ImportManifest(manifest)
	if err != nil {
		return nil, err
	}

	result := &dto.HubImportResult{Catalog: summary, Splits: make([]dto.SplitImportResult, 0)}
	for _, entry := range summary.Entries {
		for _, split := range entry.Splits {
			records, err := s.client.FetchSplit(ctx, entry.Dataset, entry.Config, split)
			if errors.Is(err, hub_client.ErrNotFound) {
				s.logger.WithFields(logrus.Fields{
					"dataset": entry.Dataset,
					"config":  entry.Config,
					"split":   split,
				}).Warn("远程仓库缺少划分内容，跳过")
				continue
			}
			if err != nil {
				return nil, err
			}

			res, err := s.datasets.ReplaceSplit(entry.Dataset, entry.Config, split, records, SourceHub)
			if err != nil {
				return nil, err
			}
			result.Splits = append(result.Splits, *res)
		}
	}
	return result, nil
}
