// internal/service/pricing/infrastructure/rule/cel_engine.go
package rule

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"bazaar/internal/service/pricing/domain"
)

// CELRuleEngine 是 domain.RuleEngine 的 CEL 实现。
// 折扣携带的资格表达式针对 Fact 求值，例如：
//
//	cartTotal >= 200.0 && quantity >= 2
//	customerId.startsWith("vip-") || "p-42" in productIds
//
// 典型的适配器：把第三方表达式引擎的 API 适配到领域接口上。
type CELRuleEngine struct {
	env *cel.Env

	mu       sync.RWMutex
	programs map[string]cel.Program // 按表达式文本缓存编译结果
}

// NewCELRuleEngine 构建求值环境。Fact 的字段就是表达式的全部变量。
func NewCELRuleEngine() (*CELRuleEngine, error) {
	env, err := cel.NewEnv(
		cel.Variable("customerId", cel.StringType),
		cel.Variable("cartTotal", cel.DoubleType),
		cel.Variable("quantity", cel.IntType),
		cel.Variable("productIds", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build CEL environment: %w", err)
	}
	return &CELRuleEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Evaluate 实现 domain.RuleEngine。表达式必须收敛为 bool。
func (e *CELRuleEngine) Evaluate(ruleDefinition string, fact domain.Fact) (bool, error) {
	prg, err := e.programFor(ruleDefinition)
	if err != nil {
		return false, err
	}

	productIDs := fact.ProductIDs
	if productIDs == nil {
		productIDs = []string{}
	}

	out, _, err := prg.Eval(map[string]interface{}{
		"customerId": fact.CustomerID,
		"cartTotal":  fact.CartTotal,
		"quantity":   fact.Quantity,
		"productIds": productIDs,
	})
	if err != nil {
		return false, fmt.Errorf("rule evaluation failed: %w", err)
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule did not evaluate to a boolean, got %T", out.Value())
	}
	return result, nil
}

func (e *CELRuleEngine) programFor(ruleDefinition string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[ruleDefinition]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(ruleDefinition)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid rule definition: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build rule program: %w", err)
	}

	e.mu.Lock()
	e.programs[ruleDefinition] = prg
	e.mu.Unlock()
	return prg, nil
}
