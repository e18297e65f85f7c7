package service

import (
	"io"
	"testing"

	"biostats-go/internal/config"
	"biostats-go/internal/metrics"
	"biostats-go/internal/models"
	"biostats-go/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testManifest = `
datasets:
  - name: bc5cdr
    display_name: BC5CDR
    homepage: https://biocreative.bioinformatics.udel.edu/tasks/biocreative-v/track-3-cdr/
    configs:
      - name: bc5cdr_bigbio_kb
        schema: bigbio_kb
        splits:
          train:
            samples_count: 3
            passages_count: 6
            mean_length: 12.5
            has_relations: true
            entities_type_counter:
              Disease: 40
              Chemical: 25
              Gene: 3
            relations_type_counter: {}
            note: null
          test:
            samples_count: 1
            entities_type_counter:
              Disease: 9
            relations_type_counter: {}
      - name: bc5cdr_source
        schema: source
  - name: pubtator_central
    configs:
      - name: pubtator_central_bigbio_kb
        schema: bigbio_kb
  - name: scifact
    configs:
      - name: scifact_bigbio_te
        schema: bigbio_te
        splits:
          train:
            samples_count: 2
      - name: scifact_local_bigbio_te
        schema: bigbio_te
        is_local: true
`

func kbRecord(title, abstract string) map[string]interface{} {
	return map[string]interface{}{
		"id": title,
		"passages": []interface{}{
			map[string]interface{}{"type": "title", "text": []interface{}{title}},
			map[string]interface{}{"type": "abstract", "text": []interface{}{abstract}},
		},
	}
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Database.Path = ":memory:"
	config.SetDefaults(cfg)
	cfg.Dashboard.HistogramBins = 3
	return cfg
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

// testEnv 导入了测试目录和 bc5cdr 记录的完整服务组合
type testEnv struct {
	cfg       *config.Config
	db        *gorm.DB
	mr        *miniredis.Miniredis
	redis     *redis.Client
	registry  *prometheus.Registry
	collector *metrics.Collector
	catalog   *CatalogService
	datasets  *DatasetService
	sessions  *SessionStore
	progress  *ProgressStore
	dashboard *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := testConfig()
	logger := testLogger()
	db := setupTestDB(t)
	mr, client := setupTestRedis(t)
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollectorWithRegistry("biostats", registry)

	catalog := NewCatalogService(repository.NewCatalogRepository(db), cfg.Catalog, collector, logger)
	datasets := NewDatasetService(catalog, repository.NewRecordRepository(db), collector, logger)
	sessions := NewSessionStore(client, cfg.Dashboard.GetSessionTTL())
	progress := NewProgressStore(client, cfg.Dashboard.GetProgressTTL())
	dashboard := NewDashboardService(catalog, datasets, sessions, progress, nil, collector, cfg, logger)

	_, err := catalog.ImportManifest([]byte(testManifest))
	require.NoError(t, err)

	_, err = datasets.ReplaceSplit("bc5cdr", "bc5cdr_bigbio_kb", "train", []map[string]interface{}{
		kbRecord("Naloxone reverses", "a b c d"),
		kbRecord("x", "one two"),
	}, SourceUpload)
	require.NoError(t, err)
	_, err = datasets.ReplaceSplit("bc5cdr", "bc5cdr_bigbio_kb", "test", []map[string]interface{}{
		kbRecord("t", "p q r"),
	}, SourceUpload)
	require.NoError(t, err)

	return &testEnv{
		cfg:       cfg,
		db:        db,
		mr:        mr,
		redis:     client,
		registry:  registry,
		collector: collector,
		catalog:   catalog,
		datasets:  datasets,
		sessions:  sessions,
		progress:  progress,
		dashboard: dashboard,
	}
}
