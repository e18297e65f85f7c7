package service

import (
	"errors"
	"fmt"

	"biostats-go/internal/models"
	"biostats-go/internal/stats"
	"biostats-go/internal/utils"

	"gopkg.in/yaml.v3"
)

// ErrInvalidManifest 目录清单格式错误
var ErrInvalidManifest = errors.New("目录清单格式错误")

// manifestFile 目录清单
//
//	datasets:
//	  - name: bc5cdr
//	    configs:
//	      - name: bc5cdr_bigbio_kb
//	        schema: bigbio_kb
//	        splits:
//	          train:
//	            samples_count: 500
//	            entities_type_counter: {Chemical: 5203, Disease: 4182}
type manifestFile struct {
	Datasets []manifestDataset `yaml:"datasets" validate:"dive"`
}

type manifestDataset struct {
	Name        string           `yaml:"name" validate:"required,max=255"`
	DisplayName string           `yaml:"display_name" validate:"max=255"`
	Homepage    string           `yaml:"homepage" validate:"max=512"`
	License     string           `yaml:"license" validate:"max=255"`
	Configs     []manifestConfig `yaml:"configs" validate:"dive"`
}

type manifestConfig struct {
	Name    string    `yaml:"name" validate:"required,max=255"`
	Schema  string    `yaml:"schema" validate:"required,max=50"`
	IsLocal bool      `yaml:"is_local"`
	Splits  yaml.Node `yaml:"splits" validate:"-"`
}

// ParseManifest 解析YAML目录清单，保持数据集、配置、划分、属性和计数器标签的书写顺序
func ParseManifest(data []byte) ([]models.Dataset, error) {
	var file manifestFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := utils.ValidateStruct(&file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	datasets := make([]models.Dataset, 0, len(file.Datasets))
	for i, md := range file.Datasets {
		dataset := models.Dataset{
			Name:        md.Name,
			DisplayName: md.DisplayName,
			Homepage:    md.Homepage,
			License:     md.License,
			Position:    i,
			Configs:     make([]models.DatasetConfig, 0, len(md.Configs)),
		}
		for j, mc := range md.Configs {
			splits, err := parseSplits(&mc.Splits)
			if err != nil {
				return nil, fmt.Errorf("%w: %s.%s: %v", ErrInvalidManifest, md.Name, mc.Name, err)
			}
			dataset.Configs = append(dataset.Configs, models.DatasetConfig{
				Name:      mc.Name,
				SchemaTag: mc.Schema,
				IsLocal:   mc.IsLocal,
				Position:  j,
				Splits:    splits,
			})
		}
		datasets = append(datasets, dataset)
	}
	return datasets, nil
}

func parseSplits(node *yaml.Node) ([]models.SplitMetadata, error) {
	node = resolveAlias(node)
	if node.Kind == 0 || isNull(node) {
		return []models.SplitMetadata{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("splits 必须是映射 (第%d行)", node.Line)
	}

	splits := make([]models.SplitMetadata, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if err := utils.ValidateVar("split", name, "split_name"); err != nil {
			return nil, err
		}
		attrs, err := parseAttributes(node.Content[i+1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		splits = append(splits, models.SplitMetadata{
			Split:      name,
			Position:   i / 2,
			Attributes: attrs,
		})
	}
	return splits, nil
}

func parseAttributes(node *yaml.Node) (models.AttributeList, error) {
	node = resolveAlias(node)
	if isNull(node) {
		return models.AttributeList{}, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("划分元数据必须是映射 (第%d行)", node.Line)
	}

	attrs := make(models.AttributeList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		attr, ok, err := parseAttribute(name, resolveAlias(node.Content[i+1]))
		if err != nil {
			return nil, err
		}
		if ok {
			attrs = append(attrs, attr)
		}
	}
	return attrs, nil
}

// parseAttribute 空值属性被忽略
func parseAttribute(name string, node *yaml.Node) (stats.Attribute, bool, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		switch node.ShortTag() {
		case "!!null":
			return stats.Attribute{}, false, nil
		case "!!int":
			var v int64
			if err := node.Decode(&v); err != nil {
				return stats.Attribute{}, false, fmt.Errorf("%s: %w", name, err)
			}
			return stats.IntAttr(name, v), true, nil
		case "!!float":
			var v float64
			if err := node.Decode(&v); err != nil {
				return stats.Attribute{}, false, fmt.Errorf("%s: %w", name, err)
			}
			return stats.FloatAttr(name, v), true, nil
		case "!!bool":
			var v bool
			if err := node.Decode(&v); err != nil {
				return stats.Attribute{}, false, fmt.Errorf("%s: %w", name, err)
			}
			return stats.BoolAttr(name, v), true, nil
		default:
			return stats.TextAttr(name, node.Value), true, nil
		}
	case yaml.MappingNode:
		counter := make(stats.Counter, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			label := node.Content[i].Value
			var count int64
			value := resolveAlias(node.Content[i+1])
			if value.Kind != yaml.ScalarNode || value.ShortTag() != "!!int" {
				return stats.Attribute{}, false, fmt.Errorf("%s.%s: 计数必须是整数 (第%d行)", name, label, value.Line)
			}
			if err := value.Decode(&count); err != nil {
				return stats.Attribute{}, false, fmt.Errorf("%s.%s: %w", name, label, err)
			}
			counter = append(counter, stats.LabelCount{Label: label, Count: count})
		}
		return stats.CounterAttr(name, counter), true, nil
	default:
		return stats.Attribute{}, false, fmt.Errorf("%s: 不支持的属性类型 (第%d行)", name, node.Line)
	}
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

func isNull(node *yaml.Node) bool {
	return node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null"
}
