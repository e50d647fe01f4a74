package ez

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"club-api/internal/core/apperr"
	"club-api/pkg/utils"
)

var validatorsOnce sync.Once

// registerValidators 自定义 binding 标签：strongpwd、phone10
func registerValidators() {
	validatorsOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool {
			return utils.StrongPassword(fl.Field().String())
		})
		_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if len(s) != 10 {
				return false
			}
			for _, r := range s {
				if r < '0' || r > '9' {
					return false
				}
			}
			return true
		})
		// 报错时用 json 字段名
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
}

func bindMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		fe := ve[0]
		switch fe.Tag() {
		case "required":
			return fmt.Sprintf("%s is required", fe.Field())
		case "strongpwd":
			return fmt.Sprintf("%s must be 8 to 72 bytes with upper, lower, digit and symbol", fe.Field())
		case "phone10":
			return fmt.Sprintf("%s must be 10 digits", fe.Field())
		case "email":
			return fmt.Sprintf("%s must be a valid email", fe.Field())
		case "oneof":
			return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
		default:
			return fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag())
		}
	}
	return "invalid request body"
}

// ParamID 解析路径上的数字 ID
func ParamID(c *gin.Context, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, apperr.Validation("invalid " + name)
	}
	return uint(v), nil
}
