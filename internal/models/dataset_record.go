package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// DatasetRecord 数据集内容中的一条记录，按 Position 保持原始顺序
type DatasetRecord struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	ConfigID  uint      `gorm:"not null;index:idx_record_order,priority:1" json:"config_id"`
	Split     string    `gorm:"size:100;not null;index:idx_record_order,priority:2" json:"split"`
	Position  int       `gorm:"not null;index:idx_record_order,priority:3" json:"position"`
	Content   JSONMap   `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 指定表名
func (DatasetRecord) TableName() string {
	return "dataset_records"
}

// JSONMap 自定义JSON类型
type JSONMap map[string]interface{}

// Scan 实现sql.Scanner接口
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("无法解析JSON字段: %T", value)
	}
	return json.Unmarshal(data, j)
}

// Value 实现driver.Valuer接口
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return "{}", nil
	}
	data, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}
