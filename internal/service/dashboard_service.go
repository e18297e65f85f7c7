package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"biostats-go/internal/config"
	"biostats-go/internal/dto"
	"biostats-go/internal/metrics"
	"biostats-go/internal/stats"
	"biostats-go/pkg/redis_limiter"

	"github.com/sirupsen/logrus"
)

// ErrNotFetched 当前会话还没有触发过统计
var ErrNotFetched = errors.New("请先点击 fetch 进行统计")

const fetchLimiterKey = "fetch"

// DashboardService 统计面板：组合目录、数据集内容和会话状态
// 每次交互都从头重新计算，不缓存统计表
type DashboardService struct {
	catalog   *CatalogService
	datasets  *DatasetService
	sessions  *SessionStore
	progress  *ProgressStore
	limiter   *redis_limiter.RedisLimiter
	collector *metrics.Collector
	logger    *logrus.Logger

	policy       stats.PassagePolicy
	bins         int
	counterSplit string
	fetchTimeout time.Duration
}

// NewDashboardService 创建统计面板服务
func NewDashboardService(
	catalog *CatalogService,
	datasets *DatasetService,
	sessions *SessionStore,
	progress *ProgressStore,
	limiter *redis_limiter.RedisLimiter,
	collector *metrics.Collector,
	cfg *config.Config,
	logger *logrus.Logger,
) *DashboardService {
	policy, err := stats.ParsePassagePolicy(cfg.Dashboard.PassagePolicy)
	if err != nil {
		logger.WithError(err).Warn("段落合并策略无效，使用默认策略")
	}
	return &DashboardService{
		catalog:      catalog,
		datasets:     datasets,
		sessions:     sessions,
		progress:     progress,
		limiter:      limiter,
		collector:    collector,
		logger:       logger,
		policy:       policy,
		bins:         cfg.Dashboard.HistogramBins,
		counterSplit: cfg.Catalog.CounterSplit,
		fetchTimeout: cfg.Dashboard.GetFetchTimeout(),
	}
}

// View 按会话状态渲染面板；已 fetch 过的会话会重新统计
func (s *DashboardService) View(ctx context.Context, sessionID string) (*dto.DashboardView, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	helpers, err := s.catalog.Helpers()
	if err != nil {
		return nil, err
	}
	return s.render(ctx, sessionID, state, helpers)
}

// Select 更新数据集、配置或计数器选择
// 切换数据集会清空配置和计数器选择，切换配置会清空计数器选择
func (s *DashboardService) Select(ctx context.Context, sessionID string, req *dto.SelectRequest) (*dto.DashboardView, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if req.Dataset != "" && req.Dataset != state.Dataset {
		state.Dataset = req.Dataset
		state.Config = ""
		state.CounterType = ""
	}
	if req.Config != "" && req.Config != state.Config {
		state.Config = req.Config
		state.CounterType = ""
	}
	if req.CounterType != "" {
		state.CounterType = req.CounterType
	}

	helpers, err := s.catalog.Helpers()
	if err != nil {
		return nil, err
	}
	if _, _, err := resolve(helpers, state); err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, sessionID, state); err != nil {
		return nil, err
	}
	return s.render(ctx, sessionID, state, helpers)
}

// Fetch 触发统计并记住该会话已 fetch
func (s *DashboardService) Fetch(ctx context.Context, sessionID string) (*dto.DashboardView, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	helpers, err := s.catalog.Helpers()
	if err != nil {
		return nil, err
	}
	if _, _, err := resolve(helpers, state); err != nil {
		return nil, err
	}

	state.Fetched = true
	if err := s.sessions.Save(ctx, sessionID, state); err != nil {
		return nil, err
	}
	return s.render(ctx, sessionID, state, helpers)
}

// Labels 计算某个计数器的标签表，min 为空时取最小计数
func (s *DashboardService) Labels(ctx context.Context, sessionID string, query *dto.LabelsQuery) (*dto.LabelsView, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !state.Fetched {
		return nil, ErrNotFetched
	}
	helper, err := s.current(state)
	if err != nil {
		return nil, err
	}

	md, err := s.catalog.GetMetadata(helper)
	if err != nil {
		return nil, err
	}

	counterType := query.CounterType
	if counterType == "" {
		counters, err := stats.ParseCounters(md, s.counterSplit)
		if err != nil {
			return nil, err
		}
		counterType = pickCounter(counters, state.CounterType)
		if counterType == "" {
			return nil, fmt.Errorf("%w: %s", stats.ErrCounterNotFound, helper.ConfigName)
		}
	}

	view, err := s.labels(md, counterType, query.Min)
	if err != nil {
		return nil, err
	}

	if state.CounterType != counterType {
		state.CounterType = counterType
		if err := s.sessions.Save(ctx, sessionID, state); err != nil {
			return nil, err
		}
	}
	return view, nil
}

// TokenLengths 重新计算当前选择的token长度表，用于导出
func (s *DashboardService) TokenLengths(ctx context.Context, sessionID string) (*stats.TokenLengthTable, *ConfigHelper, error) {
	state, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !state.Fetched {
		return nil, nil, ErrNotFetched
	}
	helper, err := s.current(state)
	if err != nil {
		return nil, nil, err
	}
	table, err := s.tokenLengths(ctx, sessionID, helper)
	if err != nil {
		return nil, nil, err
	}
	return table, helper, nil
}

// Progress 读取会话的统计进度
func (s *DashboardService) Progress(ctx context.Context, sessionID string) (*ProgressState, error) {
	return s.progress.Get(ctx, sessionID)
}

// current 读取目录并解析会话当前选择的配置
func (s *DashboardService) current(state *DashboardState) (*ConfigHelper, error) {
	helpers, err := s.catalog.Helpers()
	if err != nil {
		return nil, err
	}
	_, helper, err := resolve(helpers, state)
	return helper, err
}

// resolve 补全默认选择（第一个数据集、第一个配置）并校验
func resolve(helpers []ConfigHelper, state *DashboardState) ([]ConfigHelper, *ConfigHelper, error) {
	names := datasetNames(helpers)
	if len(names) == 0 {
		return nil, nil, fmt.Errorf("%w: 目录为空", ErrDatasetNotFound)
	}
	if state.Dataset == "" {
		state.Dataset = names[0]
	}

	configs, err := configsFor(helpers, state.Dataset)
	if err != nil {
		return nil, nil, err
	}
	if state.Config == "" {
		state.Config = configs[0].ConfigName
	}
	for i := range configs {
		if configs[i].ConfigName == state.Config {
			return configs, &configs[i], nil
		}
	}
	return nil, nil, fmt.Errorf("%w: %s/%s", ErrConfigNotFound, state.Dataset, state.Config)
}

func (s *DashboardService) render(ctx context.Context, sessionID string, state *DashboardState, helpers []ConfigHelper) (*dto.DashboardView, error) {
	names := datasetNames(helpers)
	view := &dto.DashboardView{
		Datasets: names,
		Configs:  make([]dto.ConfigOption, 0),
		Fetched:  state.Fetched,
	}
	if len(names) == 0 {
		return view, nil
	}

	configs, helper, err := resolve(helpers, state)
	if err != nil {
		return nil, err
	}
	view.Title = fmt.Sprintf("Dataset stats for %s", helper.DatasetName)
	view.Dataset = helper.DatasetName
	view.Config = helper.ConfigName
	view.Schema = helper.Schema.Tag()
	for _, c := range configs {
		view.Configs = append(view.Configs, dto.ConfigOption{Name: c.ConfigName, Schema: c.Schema.Tag()})
	}

	if !state.Fetched {
		return view, nil
	}

	md, err := s.catalog.GetMetadata(helper)
	if err != nil {
		return nil, err
	}
	view.Metrics = stats.ParseMetrics(md)
	// 计数器菜单取自约定划分，缺少该划分时整个统计失败
	counters, err := stats.ParseCounters(md, s.counterSplit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", helper.ConfigName, err)
	}

	table, err := s.tokenLengths(ctx, sessionID, helper)
	if err != nil {
		return nil, err
	}
	view.TokenLengths = &dto.TokenLengthView{Columns: table.Columns(), Rows: table.Rows}

	hist, err := stats.DrawHistogram(table, stats.TotalColumn, stats.ChartOptions{
		Title: stats.TotalColumn,
		NBins: s.bins,
	})
	if err != nil {
		return nil, err
	}
	view.Histogram = hist

	view.Counters = counters
	if counterType := pickCounter(view.Counters, state.CounterType); counterType != "" {
		labels, err := s.labels(md, counterType, nil)
		if err != nil {
			return nil, err
		}
		view.Labels = labels
	}
	return view, nil
}

// tokenLengths 在并发槽位内加载数据集并计算token长度表
func (s *DashboardService) tokenLengths(ctx context.Context, sessionID string, helper *ConfigHelper) (*stats.TokenLengthTable, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx, fetchLimiterKey); err != nil {
			return nil, fmt.Errorf("获取并发槽位失败: %w", err)
		}
		defer s.limiter.Release(context.Background(), fetchLimiterKey)
	}

	entry := s.logger.WithFields(logrus.Fields{
		"session": sessionID,
		"dataset": helper.DatasetName,
		"config":  helper.ConfigName,
		"schema":  helper.Schema.Tag(),
	})

	if s.progress != nil {
		if err := s.progress.Set(ctx, sessionID, &ProgressState{}); err != nil {
			entry.WithError(err).Debug("写入进度失败")
		}
	}

	done := func(int, error) {}
	if s.collector != nil {
		done = s.collector.FetchStarted(helper.Schema.Tag())
	}

	table, err := s.aggregate(ctx, sessionID, helper, entry)
	records := 0
	if table != nil {
		records = table.Len()
	}
	done(records, err)

	if s.progress != nil {
		if ferr := s.progress.Finish(context.Background(), sessionID, err); ferr != nil {
			entry.WithError(ferr).Debug("写入进度失败")
		}
	}
	if err != nil {
		entry.WithError(err).Error("token长度统计失败")
		return nil, err
	}

	entry.WithField("rows", records).Info("token lengths complete")
	return table, nil
}

func (s *DashboardService) aggregate(ctx context.Context, sessionID string, helper *ConfigHelper, entry *logrus.Entry) (*stats.TokenLengthTable, error) {
	dataset, err := s.datasets.LoadDataset(ctx, helper.DatasetName, helper.ConfigName)
	if err != nil {
		return nil, err
	}
	reporter := newProgressReporter(ctx, s.progress, sessionID, entry)
	return stats.ParseTokenLength(ctx, dataset, helper.Schema,
		stats.WithProgress(reporter),
		stats.WithPassagePolicy(s.policy),
	)
}

func (s *DashboardService) labels(md stats.Metadata, counterType string, min *int64) (*dto.LabelsView, error) {
	table, err := stats.ParseLabelCounter(md, counterType)
	if err != nil {
		return nil, err
	}

	view := &dto.LabelsView{CounterType: counterType, Table: table}
	lo, hi, err := table.Range()
	switch {
	case errors.Is(err, stats.ErrEmptyCounter):
		view.Bar = stats.DrawBar(table, stats.ChartOptions{Title: counterType})
		return view, nil
	case err != nil:
		return nil, err
	}

	view.Range = &dto.CounterRange{Min: lo, Max: hi}
	filter := lo
	if min != nil {
		filter = clamp(*min, lo, hi)
	}
	view.Filter = filter
	view.Table = table.FilterMin(filter)
	view.Bar = stats.DrawBar(view.Table, stats.ChartOptions{Title: counterType})
	return view, nil
}

func pickCounter(counters []string, preferred string) string {
	for _, c := range counters {
		if c == preferred {
			return c
		}
	}
	if len(counters) > 0 {
		return counters[0]
	}
	return ""
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
