package wizard

import (
	"fmt"

	"ebook-assist-api/internal/domain/entity"
)

// ValidationError 步骤输入不合法。
// 本地恢复：同一步骤重新提示，会话状态与资源均不变。
type ValidationError struct {
	Step   entity.WizardStep
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid input at step %s: %s", e.Step, e.Reason)
}

// IsValidation 检查错误是否为输入校验失败
func IsValidation(err error) bool {
	_, ok := err.(ValidationError)
	return ok
}
