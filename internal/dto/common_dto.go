package dto

// ImportSummary 目录清单导入结果
type ImportSummary struct {
	Datasets []string         `json:"datasets"`
	Configs  int              `json:"configs"`
	Splits   int              `json:"splits"`
	Entries  []ImportedConfig `json:"entries"`
}

// ImportedConfig 导入的一个配置及其划分
type ImportedConfig struct {
	Dataset string   `json:"dataset"`
	Config  string   `json:"config"`
	Splits  []string `json:"splits"`
}

// SplitImportResult 划分写入结果
type SplitImportResult struct {
	Dataset string `json:"dataset"`
	Config  string `json:"config"`
	Split   string `json:"split"`
	Records int64  `json:"records"`
}

// HubImportRequest 从远程仓库导入数据集
type HubImportRequest struct {
	Dataset string `json:"dataset" binding:"required,max=255"`
}

// HubImportResult 远程导入结果
type HubImportResult struct {
	Catalog *ImportSummary      `json:"catalog"`
	Splits  []SplitImportResult `json:"splits"`
}

// IngestRecordsRequest 追加记录请求
type IngestRecordsRequest struct {
	Dataset string                   `json:"dataset" binding:"required,max=255"`
	Config  string                   `json:"config" binding:"required,max=255"`
	Split   string                   `json:"split" binding:"required,split_name"`
	Records []map[string]interface{} `json:"records" binding:"required,min=1,max=10000"`
}
