// internal/service/order/infrastructure/freight/cel_freight.go
package freight

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"mall/internal/service/order/domain/port"
)

// CELCalculator 用 CEL 表达式实现 port.FreightCalculator。
// 运费规则是一段配置下发的表达式，变量:
//
//	subtotal 商品小计（分, int）
//	weight   总重量（千克, double）
//	province 收货省份（string）
//
// 表达式求值结果为运费金额（分）。规则在构造时编译一次，
// 每次下单只执行已编译的 Program。
type CELCalculator struct {
	program cel.Program
}

func NewCELCalculator(rule string) (*CELCalculator, error) {
	env, err := cel.NewEnv(
		cel.Variable("subtotal", cel.IntType),
		cel.Variable("weight", cel.DoubleType),
		cel.Variable("province", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, issues := env.Compile(rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile freight rule %q: %w", rule, issues.Err())
	}
	if ast.OutputType() != cel.IntType {
		return nil, fmt.Errorf("freight rule %q must evaluate to int, got %s", rule, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build freight program: %w", err)
	}
	return &CELCalculator{program: program}, nil
}

func (c *CELCalculator) Calculate(_ context.Context, input port.FreightInput) (int64, error) {
	out, _, err := c.program.Eval(map[string]interface{}{
		"subtotal": input.Subtotal,
		"weight":   input.Weight,
		"province": input.Province,
	})
	if err != nil {
		return 0, fmt.Errorf("eval freight rule: %w", err)
	}

	fee, ok := out.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("freight rule returned %T, want int64", out.Value())
	}
	if fee < 0 {
		return 0, fmt.Errorf("freight rule returned negative fee %d", fee)
	}
	return fee, nil
}
