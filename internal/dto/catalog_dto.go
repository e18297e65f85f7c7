package dto

// DatasetOptions 数据集选择器选项
type DatasetOptions struct {
	Datasets []string `json:"datasets"`
}

// ConfigOption 配置选择器的一项
type ConfigOption struct {
	Name   string `json:"name"`
	Schema string `json:"schema"`
}

// DatasetInfo 数据集描述
type DatasetInfo struct {
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name,omitempty"`
	Homepage    string         `json:"homepage,omitempty"`
	License     string         `json:"license,omitempty"`
	Configs     []ConfigOption `json:"configs"`
}

// ConfigOptions 配置选择器选项
type ConfigOptions struct {
	Dataset string         `json:"dataset"`
	Configs []ConfigOption `json:"configs"`
}
