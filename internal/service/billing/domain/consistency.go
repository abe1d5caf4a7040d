// internal/service/billing/domain/consistency.go
package domain

// VerdictKind 对两侧商品视图的比对结果分类。
type VerdictKind int

const (
	VerdictIdentical VerdictKind = iota
	VerdictMissingOnOneSide
	VerdictNameMismatch
	VerdictCategoryMismatch
	VerdictStockMismatch
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictIdentical:
		return "identical"
	case VerdictMissingOnOneSide:
		return "missing_on_one_side"
	case VerdictNameMismatch:
		return "name_mismatch"
	case VerdictCategoryMismatch:
		return "category_mismatch"
	case VerdictStockMismatch:
		return "stock_mismatch"
	default:
		return "unknown"
	}
}

// Verdict 是一次比对的结论。库存数量不等时附带两侧的值。
type Verdict struct {
	Kind           VerdictKind
	InventoryStock int
	CatalogStock   int
}

// Identical 判断该结论是否表示两侧完全一致。
func (v Verdict) Identical() bool {
	return v.Kind == VerdictIdentical
}

// Structural 判断该结论是否属于结构性损坏（名称/类目不一致）。
// 库存数不等通常只是时序漂移，要与结构性损坏区分开。
func (v Verdict) Structural() bool {
	return v.Kind == VerdictNameMismatch || v.Kind == VerdictCategoryMismatch
}

// CompareViews 是纯函数：比对同一 id 在两侧的视图。
// 比对顺序是刻意的：缺失 -> 名称 -> 类目 -> 库存数，命中第一处不一致即返回。
// 名称/类目不一致意味着数据损坏，要最先暴露；库存数不一致多半是时序漂移。
func CompareViews(inventory, catalog *ItemView) Verdict {
	if inventory == nil || catalog == nil {
		return Verdict{Kind: VerdictMissingOnOneSide}
	}
	if inventory.Name != catalog.Name {
		return Verdict{Kind: VerdictNameMismatch}
	}
	if inventory.Category != catalog.Category {
		return Verdict{Kind: VerdictCategoryMismatch}
	}
	if inventory.Quantity != catalog.Quantity {
		return Verdict{
			Kind:           VerdictStockMismatch,
			InventoryStock: inventory.Quantity,
			CatalogStock:   catalog.Quantity,
		}
	}
	return Verdict{Kind: VerdictIdentical}
}
