package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// 字段级错误提示，与客户端约定的文案保持一致。
const (
	MsgRequired    = "This field is required."
	MsgNull        = "This field may not be null."
	MsgBlank       = "This field may not be blank."
	MsgInvalidInt  = "A valid integer is required."
	MsgInvalidStr  = "Not a valid string."
	MsgInvalidIP   = "Enter a valid IPv4 or IPv6 address."
	MsgInvalidDate = "Datetime has wrong format. Use one of these formats instead: YYYY-MM-DDThh:mm[:ss[.uuuuuu]][+HH:MM|-HH:MM|Z]."
	MsgInvalid     = "Invalid value."
)

// NonFieldErrors 是与具体字段无关的错误所使用的键。
const NonFieldErrors = "non_field_errors"

// FieldErrors 按字段聚合校验错误，一次性返回给调用方。
type FieldErrors map[string][]string

// Add 为指定字段追加一条错误。
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Has 判断字段是否已经记录过错误。
func (f FieldErrors) Has(field string) bool {
	_, ok := f[field]
	return ok
}

// Merge 合并另一组错误；已有错误的字段保持原样，避免同一字段重复报错。
func (f FieldErrors) Merge(other FieldErrors) {
	for field, messages := range other {
		if f.Has(field) {
			continue
		}
		f[field] = append([]string(nil), messages...)
	}
}

// Fields 返回排序后的字段名。
func (f FieldErrors) Fields() []string {
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Error 表示一次请求的整体校验失败，Fields 携带全部字段错误。
type Error struct {
	Fields FieldErrors
}

// NewError 包装字段错误。
func NewError(fields FieldErrors) *Error {
	return &Error{Fields: fields}
}

func (e *Error) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	return "validation failed: " + strings.Join(e.Fields.Fields(), ", ")
}

// As 从错误链中提取 *Error。
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) && target != nil {
		return target, true
	}
	return nil, false
}

var (
	engineOnce sync.Once
	engine     *validator.Validate
)

// Engine 返回共享的 validator 实例，字段名取 json tag。
func Engine() *validator.Validate {
	engineOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			field := fl.Field()
			if field.Kind() != reflect.String {
				return true
			}
			return strings.TrimSpace(field.String()) != ""
		})
		engine = v
	})
	return engine
}

// Struct 执行 validate tag 校验，并把 validator 的错误翻译为字段错误；全部通过时返回 nil。
func Struct(value any) FieldErrors {
	err := Engine().Struct(value)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{NonFieldErrors: {err.Error()}}
	}

	fields := FieldErrors{}
	for _, fe := range verrs {
		name := fe.Field()
		if fields.Has(name) {
			continue
		}
		fields.Add(name, translate(fe))
	}
	return fields
}

// FromJSONError 将 encoding/json 的类型错误转换为字段错误，其它错误返回 false。
func FromJSONError(err error) (FieldErrors, bool) {
	var typeErr *json.UnmarshalTypeError
	if !errors.As(err, &typeErr) || typeErr.Field == "" {
		return nil, false
	}

	message := MsgInvalid
	switch typeErr.Type.Kind() {
	case reflect.String:
		message = MsgInvalidStr
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		message = MsgInvalidInt
	case reflect.Pointer:
		switch typeErr.Type.Elem().Kind() {
		case reflect.String:
			message = MsgInvalidStr
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			message = MsgInvalidInt
		}
	}
	return FieldErrors{typeErr.Field: {message}}, true
}

func translate(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MsgRequired
	case "notblank":
		return MsgBlank
	case "ip", "ipv4", "ipv6":
		return MsgInvalidIP
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	default:
		return MsgInvalid
	}
}

func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	default:
		return name
	}
}
