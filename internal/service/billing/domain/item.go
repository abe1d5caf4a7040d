// internal/service/billing/domain/item.go
package domain

// ItemView 是从某一侧库存服务读到的商品视图。
// 两侧各存一份拷贝：库存侧只有基础字段，目录侧多出描述性字段。
// 原来松散的 map 表示在这里收敛为强类型，保证一致性比对是穷尽且可被编译器检查的。
type ItemView struct {
	ID       int64
	Name     string
	Category string
	Price    float64
	Quantity int

	// 目录侧特有的描述性字段，库存侧视图中为零值。
	Description string
	SKU         string
	Active      bool

	// Degraded 标记该视图由兜底响应器提供，而非真实远端。
	// 这个标记必须一路透传到销售决策点。
	Degraded bool
}

// ItemListing 是一次全量列表读取的结果。
type ItemListing struct {
	Items    []ItemView
	Degraded bool
}

// FindByID 在列表中按 id 查找，未命中返回 nil。
func (l ItemListing) FindByID(id int64) *ItemView {
	for i := range l.Items {
		if l.Items[i].ID == id {
			return &l.Items[i]
		}
	}
	return nil
}

// FindByName 在列表中按名称精确匹配查找，未命中返回 nil。
// 取消销售时用它把账目上仅存的商品名重新解析回商品 id。
func (l ItemListing) FindByName(name string) *ItemView {
	for i := range l.Items {
		if l.Items[i].Name == name {
			return &l.Items[i]
		}
	}
	return nil
}
