// internal/pkg/clock/clock.go
package clock

import "time"

// System 是真实时钟。业务代码只依赖各自领域层的 Clock 接口，
// 组装时注入这个实现，测试里换成固定时钟。
type System struct{}

func (System) Now() time.Time { return time.Now() }
