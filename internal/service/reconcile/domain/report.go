// internal/service/reconcile/domain/report.go
package domain

import (
	"errors"
	"time"
)

// 对账操作的失败分类。
var (
	// ErrItemNotComparable 商品在某一侧不存在，无法做库存同步。
	ErrItemNotComparable = errors.New("item is missing on one side, cannot sync")

	// ErrDegradedSource 任一侧读取是兜底数据，拒绝以它为准推平库存。
	ErrDegradedSource = errors.New("refusing to sync from degraded stock data")
)

// DriftEntry 是一条两侧库存不一致的明细。
// 某一侧的库存值为 -1 表示商品在该侧不存在。
type DriftEntry struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	InventoryStock int    `json:"inventoryStock"`
	CatalogStock   int    `json:"catalogStock"`
}

// DriftReport 是一次全量漂移扫描的结果。
// 报告只陈述观察到的事实，不隐含任何一侧是对的。
type DriftReport struct {
	TotalCompared    int          `json:"totalCompared"`
	Synced           int          `json:"synced"`
	Mismatched       int          `json:"mismatched"`
	MissingOnOneSide int          `json:"missingOnOneSide"`
	Mismatches       []DriftEntry `json:"mismatches"`

	// 任一侧列表来自兜底时置位：此时报告反映的是样本数据和真实数据的
	// 对比，数字没有修复价值，仅用于观察降级本身。
	InventoryDegraded bool `json:"inventoryDegraded"`
	CatalogDegraded   bool `json:"catalogDegraded"`

	GeneratedAt time.Time `json:"generatedAt"`
}

// HasDrift 报告中是否存在需要关注的不一致。
func (r *DriftReport) HasDrift() bool {
	return r.Mismatched > 0 || r.MissingOnOneSide > 0
}

// SyncStatus 是单商品同步的终态。
type SyncStatus string

const (
	// SyncPerformed 本次推送真实修改了目录侧库存。
	SyncPerformed SyncStatus = "synced"
	// SyncNotNeeded 两侧在检查瞬间已经一致，未发生写入。
	SyncNotNeeded SyncStatus = "already_synced"
)

// SyncResult 是一次 SyncItem 操作的结果。
type SyncResult struct {
	Status               SyncStatus `json:"status"`
	ItemID               int64      `json:"itemId"`
	ItemName             string     `json:"itemName"`
	PreviousCatalogStock int        `json:"previousCatalogStock"`
	NewStock             int        `json:"newStock"`
}
