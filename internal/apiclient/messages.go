package apiclient

// User-facing messages shown when the failure did not come from the server.
const (
	MsgTimeout         = "Yêu cầu đã quá thời gian chờ. Vui lòng thử lại sau."
	MsgNetwork         = "Không thể kết nối tới máy chủ. Vui lòng kiểm tra kết nối mạng."
	MsgUnexpected      = "Đã xảy ra lỗi không mong muốn. Vui lòng thử lại."
	MsgUnauthorized    = "Phiên đăng nhập đã hết hạn. Vui lòng đăng nhập lại."
	MsgForbidden       = "Bạn không có quyền thực hiện thao tác này."
	MsgNotFound        = "Không tìm thấy dữ liệu yêu cầu."
	MsgServerError     = "Máy chủ đang gặp sự cố. Vui lòng thử lại sau."
	MsgInvalidResponse = "Phản hồi từ máy chủ không hợp lệ."
)
