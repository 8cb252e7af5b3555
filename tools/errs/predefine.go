package errs

// 通用错误码
const (
	ServerInternalError = 500

	ValidationError      = 1001 // 请求参数不合法
	AuthorizationError   = 1002 // 无权访问（非发送方/接收方、非作者）
	NotFoundError        = 1003 // 不存在或已过期
	UploadError          = 1004 // 媒体上传失败
	StoreError           = 1005 // 存储层失败
	UnauthenticatedError = 1006 // token 缺失/无效
	HubClosedError       = 1007 // 订阅中心已关闭
)

var (
	ErrInternal        = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrValidation      = NewCodeError(ValidationError, "ValidationError")
	ErrAuthorization   = NewCodeError(AuthorizationError, "AuthorizationError")
	ErrNotFound        = NewCodeError(NotFoundError, "NotFoundError")
	ErrUpload          = NewCodeError(UploadError, "UploadError")
	ErrStore           = NewCodeError(StoreError, "StoreError")
	ErrUnauthenticated = NewCodeError(UnauthenticatedError, "UnauthenticatedError")
	ErrHubClosed       = NewCodeError(HubClosedError, "HubClosedError")
)
