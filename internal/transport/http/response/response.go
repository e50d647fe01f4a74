package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope 所有接口统一返回 {code,msg,data}
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// OK data 为 nil 时输出 {}，前端不用判 null
func OK(data any) Envelope {
	if data == nil {
		data = struct{}{}
	}
	return Envelope{Code: CodeOK, Msg: CodeMsgMap[CodeOK], Data: data}
}

// Fail msg 为空时用业务码的默认文案
func Fail(code int, msg string) Envelope {
	if msg == "" {
		msg = CodeMsgMap[code]
	}
	return Envelope{Code: code, Msg: msg, Data: struct{}{}}
}

// Write 成功响应；status 为 0 按 200
func Write(c *gin.Context, status int, data any) {
	if status == 0 {
		status = http.StatusOK
	}
	c.JSON(status, OK(data))
}

// Abort 以 code 对应的 HTTP 状态中断请求
func Abort(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(Status(code), Fail(code, msg))
}
