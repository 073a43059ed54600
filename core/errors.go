package core

import "errors"

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持 errors.Is（按 Code 匹配）与 errors.As
//
// 使用场景：
//   - 向量表构建：DATA_INTEGRITY（重复 ID、维度不一致、行数不足）
//   - 用户画像：DATA_INTEGRITY（strict 模式下引用了未索引的文章）
//   - Store：NOT_FOUND, NOT_SUPPORTED
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "DATA_INTEGRITY"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "embedding", "profile"）
	Err     error  // 底层错误（可选）
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is 按错误代码匹配，使 errors.Is(err, ErrDataIntegrity) 对任意模块的同类错误成立。
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	if t.Module != "" && t.Module != e.Module {
		return false
	}
	return t.Code == e.Code
}

// IsDomainError 检查错误链中是否存在 DomainError
func IsDomainError(err error) bool {
	return GetDomainError(err) != nil
}

// GetDomainError 获取错误链中的 DomainError，如果不存在则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// WrapDomainError 创建包装底层错误的领域错误
func WrapDomainError(module, code, message string, err error) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound      = "NOT_FOUND"      // 资源不存在
	ErrorCodeNotSupported  = "NOT_SUPPORTED"  // 操作不支持
	ErrorCodeUnavailable   = "UNAVAILABLE"    // 服务不可用
	ErrorCodeInvalidInput  = "INVALID_INPUT"  // 输入无效
	ErrorCodeInternalError = "INTERNAL_ERROR" // 内部错误
	ErrorCodeDataIntegrity = "DATA_INTEGRITY" // 数据完整性错误（加载阶段致命）
)

// 模块名称常量
const (
	ModuleStore     = "store"     // 存储模块
	ModuleEmbedding = "embedding" // 向量表模块
	ModuleRating    = "rating"    // 隐式评分模块
	ModuleProfile   = "profile"   // 用户画像模块
	ModuleDataset   = "dataset"   // 数据加载模块
	ModuleModel     = "model"     // 模型快照模块
	ModuleService   = "service"   // 推荐服务模块
)

var (
	// ErrDataIntegrity 匹配任意模块的 DATA_INTEGRITY 错误，用于 errors.Is。
	ErrDataIntegrity = &DomainError{Code: ErrorCodeDataIntegrity, Message: "data integrity violation"}

	// ErrUnindexedArticle 表示评分引用了向量表中不存在的文章（仅 strict 策略下返回）。
	ErrUnindexedArticle = NewDomainError(ModuleProfile, ErrorCodeDataIntegrity, "profile: rating references unindexed article")
)

// IsDataIntegrity 检查错误是否为 DATA_INTEGRITY
func IsDataIntegrity(err error) bool {
	return errors.Is(err, ErrDataIntegrity)
}

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}

// IsUnavailable 检查错误是否为 UNAVAILABLE
func IsUnavailable(err error) bool {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeUnavailable
	}
	return false
}
