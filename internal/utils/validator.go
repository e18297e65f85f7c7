package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"biostats-go/internal/schema"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// ErrValidation 参数校验失败
var ErrValidation = errors.New("参数校验失败")

var (
	validate *validator.Validate

	usernamePattern  = regexp.MustCompile("^[a-zA-Z0-9_]+$")
	splitNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.\-]*$`)
)

// InitValidator 初始化验证器
func InitValidator() {
	validate = validator.New()

	validate.RegisterValidation("username", validateUsername)
	validate.RegisterValidation("schema_tag", validateSchemaTag)
	validate.RegisterValidation("split_name", validateSplitName)
}

// RegisterGinValidators 将自定义规则注册到 gin 的绑定验证器
func RegisterGinValidators() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("username", validateUsername)
		v.RegisterValidation("schema_tag", validateSchemaTag)
		v.RegisterValidation("split_name", validateSplitName)
	}
}

// GetValidator 获取验证器实例
func GetValidator() *validator.Validate {
	if validate == nil {
		InitValidator()
	}
	return validate
}

func validateUsername(fl validator.FieldLevel) bool {
	username := fl.Field().String()
	if len(username) < 3 || len(username) > 50 {
		return false
	}
	return usernamePattern.MatchString(username)
}

// validateSchemaTag 只接受 BigBio schema 标签
func validateSchemaTag(fl validator.FieldLevel) bool {
	_, err := schema.Parse(fl.Field().String())
	return err == nil
}

// validateSplitName 划分名只允许字母数字和 _ . -
func validateSplitName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	return len(name) <= 100 && splitNamePattern.MatchString(name)
}

// ValidateStruct 验证结构体
func ValidateStruct(s interface{}) error {
	v := GetValidator()
	if err := v.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateVar 验证单个值
func ValidateVar(field string, value interface{}, tag string) error {
	v := GetValidator()
	if err := v.Var(value, tag); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok {
			return fmt.Errorf("%w: %s", ErrValidation, describe(field, errs[0]))
		}
		return err
	}
	return nil
}

// formatValidationError 格式化验证错误
func formatValidationError(err error) error {
	var messages []string

	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrors {
			messages = append(messages, describe(e.Field(), e))
		}
	}

	if len(messages) > 0 {
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(messages, "; "))
	}

	return err
}

func describe(field string, e validator.FieldError) string {
	param := e.Param()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s是必填字段", field)
	case "min":
		return fmt.Sprintf("%s长度不能小于%s", field, param)
	case "max":
		return fmt.Sprintf("%s长度不能大于%s", field, param)
	case "username":
		return fmt.Sprintf("%s只能包含字母、数字和下划线，长度3-50", field)
	case "schema_tag":
		return fmt.Sprintf("%s不是支持的BigBio schema", field)
	case "split_name":
		return fmt.Sprintf("%s只能包含字母、数字、下划线、点和连字符", field)
	default:
		return fmt.Sprintf("%s验证失败: %s", field, e.Tag())
	}
}
