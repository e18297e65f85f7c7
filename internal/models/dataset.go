package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"biostats-go/internal/stats"
)

// Dataset 目录中的数据集
type Dataset struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:255;not null" json:"name"`
	DisplayName string    `gorm:"size:255" json:"display_name"`
	Homepage    string    `gorm:"size:512" json:"homepage"`
	License     string    `gorm:"size:255" json:"license"`
	Position    int       `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Configs []DatasetConfig `gorm:"foreignKey:DatasetID;constraint:OnDelete:CASCADE" json:"configs,omitempty"`
}

// TableName 指定表名
func (Dataset) TableName() string {
	return "datasets"
}

// DatasetConfig 数据集的一个配置（schema 视图）
type DatasetConfig struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	DatasetID uint      `gorm:"not null;index" json:"dataset_id"`
	Name      string    `gorm:"uniqueIndex;size:255;not null" json:"name"`
	SchemaTag string    `gorm:"size:50;not null" json:"schema"`
	IsLocal   bool      `gorm:"default:false" json:"is_local"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Splits []SplitMetadata `gorm:"foreignKey:ConfigID;constraint:OnDelete:CASCADE" json:"splits,omitempty"`
}

// TableName 指定表名
func (DatasetConfig) TableName() string {
	return "dataset_configs"
}

// SplitMetadata 某个配置在某个划分上的统计元数据
type SplitMetadata struct {
	ID         uint          `gorm:"primarykey" json:"id"`
	ConfigID   uint          `gorm:"not null;uniqueIndex:idx_config_split" json:"config_id"`
	Split      string        `gorm:"size:100;not null;uniqueIndex:idx_config_split" json:"split"`
	Position   int           `gorm:"not null;default:0" json:"position"`
	Attributes AttributeList `gorm:"type:text" json:"attributes"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// TableName 指定表名
func (SplitMetadata) TableName() string {
	return "split_metadata"
}

// AttributeList 以JSON文本存储的有序属性列表
type AttributeList []stats.Attribute

// Scan 实现sql.Scanner接口
func (a *AttributeList) Scan(value interface{}) error {
	if value == nil {
		*a = AttributeList{}
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法解析属性列表: %T", value)
	}
	return json.Unmarshal(data, a)
}

// Value 实现driver.Valuer接口
func (a AttributeList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
