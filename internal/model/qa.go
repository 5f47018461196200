package model

// RunRequest 对应 POST /hackrx/run 的请求体。
// Questions 使用 binding:"required"，缺失或不是数组时在绑定阶段即被拒绝。
type RunRequest struct {
	Documents string   `json:"documents" binding:"required"`
	Questions []string `json:"questions" binding:"required"`
}

// RunResponse 对应成功响应，Answers 与 Questions 一一对应且顺序一致。
type RunResponse struct {
	Answers []string `json:"answers"`
}

// ErrorResponse 是所有失败响应的统一结构。
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

const (
	// NotFoundAnswer 是上下文中找不到答案时返回的固定文本。
	NotFoundAnswer = "Information not available in the provided documents."
	// ErrorAnswer 是单个问题处理失败时的占位答案。
	ErrorAnswer = "Error processing this question. Please try again."
)
