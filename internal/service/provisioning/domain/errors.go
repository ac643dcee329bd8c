// internal/service/provisioning/domain/errors.go
package domain

import "fmt"

// ProvisioningError 表示多步创建流程在某一步失败。
// 补偿已经执行（或已尽力执行），这里包着的是触发补偿的原始错误。
type ProvisioningError struct {
	Operation string
	Step      string
	Err       error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("%s failed at step %q: %v", e.Operation, e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

// NewProvisioningError 包装一次失败的创建步骤。
func NewProvisioningError(operation, step string, err error) *ProvisioningError {
	return &ProvisioningError{Operation: operation, Step: step, Err: err}
}

// ValidationError 表示入参形状错误，发生在任何 I/O 之前。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError 构造入参校验错误。
func NewValidationError(msg string) *ValidationError {
	return &ValidationError{Message: msg}
}

// NotFoundError 表示要操作的资源不存在。
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}
