// internal/service/promotion/infrastructure/rule/cel_rule.go
package rule

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// CELRuleEngine 用 CEL 表达式实现 domain.RuleEngine。
// 门槛规则随模板存库，变量只有 subtotal（商品小计，分），
// 例如 `subtotal >= 20000`。编译结果按规则文本缓存。
type CELRuleEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program
}

func NewCELRuleEngine() (*CELRuleEngine, error) {
	env, err := cel.NewEnv(cel.Variable("subtotal", cel.IntType))
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}
	return &CELRuleEngine{env: env, programs: make(map[string]cel.Program)}, nil
}

func (e *CELRuleEngine) Eligible(ruleText string, subtotal int64) (bool, error) {
	if ruleText == "" {
		return true, nil
	}

	program, err := e.compile(ruleText)
	if err != nil {
		return false, err
	}

	out, _, err := program.Eval(map[string]interface{}{"subtotal": subtotal})
	if err != nil {
		return false, fmt.Errorf("eval eligibility rule: %w", err)
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return false, fmt.Errorf("eligibility rule returned %T, want bool", out.Value())
	}
	return ok, nil
}

func (e *CELRuleEngine) compile(ruleText string) (cel.Program, error) {
	e.mu.RLock()
	program, hit := e.programs[ruleText]
	e.mu.RUnlock()
	if hit {
		return program, nil
	}

	ast, issues := e.env.Compile(ruleText)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile eligibility rule %q: %w", ruleText, issues.Err())
	}
	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("eligibility rule %q must evaluate to bool, got %s", ruleText, ast.OutputType())
	}
	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build eligibility program: %w", err)
	}

	e.mu.Lock()
	e.programs[ruleText] = program
	e.mu.Unlock()
	return program, nil
}
