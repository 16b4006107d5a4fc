package domain

import "time"

// Customer 表示客户邮箱记录，来源于人工录入或定时抓取
type Customer struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Brand     string    `json:"brand" gorm:"type:varchar(100);index"`
	Tag       string    `json:"tag" gorm:"type:varchar(100);index"`
	AddDate   string    `json:"addDate" gorm:"type:varchar(10);index"` // YYYY-MM-DD
	Remarks   string    `json:"remarks" gorm:"type:varchar(500)"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定客户表名
func (Customer) TableName() string {
	return "customers"
}

// CustomerListQuery 客户列表查询条件
type CustomerListQuery struct {
	Page   int    // 页码，从 1 开始
	Limit  int    // 每页条数
	Search string // 模糊搜索，匹配邮箱、品牌、标签、备注
	Brand  string // 精确过滤品牌
	Tag    string // 精确过滤标签
}

// Normalize 纠正分页参数的越界值
func (q *CustomerListQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > 200 {
		q.Limit = 20
	}
}

// BatchUpsertResult 批量写入客户的结果统计
type BatchUpsertResult struct {
	InsertedCount int `json:"insertedCount"`
	SkippedCount  int `json:"skippedCount"`
}
