// internal/service/billing/infrastructure/policy/cel_policy.go
package policy

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"stockbridge/internal/service/billing/domain"
	"stockbridge/internal/service/billing/domain/port"
)

// CELSalePolicy 用一条 CEL 表达式决定销售是否放行，典型的策略维度是
// 降级读取能否参与销售。表达式可以引用：
//
//	inventory.degraded  库存侧视图是否来自兜底
//	catalog.degraded    目录侧视图是否来自兜底
//	quantity            请求数量
//
// 默认表达式 "!inventory.degraded && !catalog.degraded" 在任一侧降级时
// 拒绝销售——不能对着兜底样本数据扣真实库存。运营可以改表达式放宽，
// 例如允许小额销售在目录侧降级时继续。
type CELSalePolicy struct {
	program cel.Program
	expr    string
}

var _ port.SalePolicy = (*CELSalePolicy)(nil)

func NewCELSalePolicy(expr string) (*CELSalePolicy, error) {
	env, err := cel.NewEnv(
		cel.Variable("inventory", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("catalog", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("quantity", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile sale policy %q: %w", expr, issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build sale policy program: %w", err)
	}
	return &CELSalePolicy{program: program, expr: expr}, nil
}

func (p *CELSalePolicy) Allow(_ context.Context, inventory, catalog *domain.ItemView, quantity int) (bool, error) {
	out, _, err := p.program.Eval(map[string]interface{}{
		"inventory": map[string]interface{}{"degraded": inventory.Degraded},
		"catalog":   map[string]interface{}{"degraded": catalog.Degraded},
		"quantity":  int64(quantity),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate sale policy %q: %w", p.expr, err)
	}
	allowed, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("sale policy %q did not evaluate to bool", p.expr)
	}
	return allowed, nil
}
