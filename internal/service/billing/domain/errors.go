// internal/service/billing/domain/errors.go
package domain

import "errors"

// 销售协议的拒绝分类。业务规则失败永远以这些有类型的错误浮出，
// 不会被降级路径吞掉。
var (
	// ErrItemNotFound 商品在任一侧不存在。
	ErrItemNotFound = errors.New("item not found")

	// ErrInconsistentItem 两侧视图不一致（名称/类目/库存任一不符），销售被阻断。
	ErrInconsistentItem = errors.New("item views are inconsistent between services")

	// ErrOutOfStock 任一侧库存为零。
	ErrOutOfStock = errors.New("item is out of stock")

	// ErrInsufficientStock 请求数量超过（已验证相等的）可用库存。
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrStockUpdateFailed 库存侧扣减失败，目录侧未被触碰，未记账。
	ErrStockUpdateFailed = errors.New("stock update failed")

	// ErrPartialStockUpdate 库存侧已扣减但目录侧扣减失败。
	// 协议已知的薄弱点：不自动回滚，漂移留给对账服务收口。
	ErrPartialStockUpdate = errors.New("partial stock update: inventory debited, catalog not")

	// ErrServiceDegraded 读取由兜底响应器提供，按策略拒绝参与销售。
	ErrServiceDegraded = errors.New("stock data is degraded")

	// ErrSaleNotFound 账本中没有该销售记录。
	ErrSaleNotFound = errors.New("sale not found")

	// ErrDuplicateRequest 幂等键已被占用的重复请求。
	ErrDuplicateRequest = errors.New("duplicate sale request")

	// ErrCompensationTargetLost 取消销售时无法按名称找回商品，账目保持原样。
	ErrCompensationTargetLost = errors.New("cannot resolve compensation target for sale")
)

// RejectionReason 把拒绝错误映射为稳定的指标/接口标签。
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrItemNotFound):
		return "not_found"
	case errors.Is(err, ErrInconsistentItem):
		return "inconsistent"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrPartialStockUpdate):
		return "partial_stock_update"
	case errors.Is(err, ErrStockUpdateFailed):
		return "stock_update_failed"
	case errors.Is(err, ErrServiceDegraded):
		return "service_degraded"
	case errors.Is(err, ErrDuplicateRequest):
		return "duplicate_request"
	default:
		return "internal"
	}
}
