// internal/service/billing/domain/ledger.go
package domain

import "context"

// SaleLedger 定义了销售账本的持久化接口。
// 它位于领域层，由基础设施层实现。追加与补偿性删除之外不提供更新操作。
type SaleLedger interface {
	// Append 追加一条销售记录，返回账本分配的 id。
	Append(ctx context.Context, sale *Sale) (int64, error)

	// Get 按 id 查找销售记录，不存在时返回 ErrSaleNotFound。
	Get(ctx context.Context, id int64) (*Sale, error)

	// Delete 删除一条销售记录（仅取消销售的补偿路径使用）。
	Delete(ctx context.Context, id int64) error

	// All 返回全部销售记录。
	All(ctx context.Context) ([]Sale, error)

	// TotalsByCategory 按类目汇总销售额。
	TotalsByCategory(ctx context.Context) (map[string]float64, error)
}
