package validator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// MessageFunc renders the user-facing text of one failed rule.
type MessageFunc func(fe validator.FieldError) string

// FieldErrors maps a json field name to its first validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// Validator wraps go-playground/validator with json field names and
// Vietnamese messages.
type Validator struct {
	validate *validator.Validate
	byTag    map[string]MessageFunc
	byField  map[string]string
}

func New() *Validator {
	v := &Validator{
		validate: validator.New(validator.WithRequiredStructEnabled()),
		byTag:    defaultMessages(),
		byField:  make(map[string]string),
	}
	UseJSONNames(v.validate)
	return v
}

// UseJSONNames makes field errors report json tag names. The router applies it
// to gin's binding engine too.
func UseJSONNames(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
}

// Engine exposes the underlying validate instance for custom registrations.
func (v *Validator) Engine() *validator.Validate {
	return v.validate
}

// RegisterMessage overrides the message of a tag for every field.
func (v *Validator) RegisterMessage(tag string, fn MessageFunc) {
	v.byTag[tag] = fn
}

// RegisterFieldMessage sets a fixed message for one field and tag.
func (v *Validator) RegisterFieldMessage(field, tag, msg string) {
	v.byField[field+"."+tag] = msg
}

// Struct validates obj and returns nil when it is valid.
func (v *Validator) Struct(obj interface{}) FieldErrors {
	return v.Translate(v.validate.Struct(obj))
}

// StructCtx validates obj passing ctx to context-aware rules.
func (v *Validator) StructCtx(ctx context.Context, obj interface{}) FieldErrors {
	return v.Translate(v.validate.StructCtx(ctx, obj))
}

// Translate turns a validator error into FieldErrors. Errors that are not
// validation errors are reported under the empty key.
func (v *Validator) Translate(err error) FieldErrors {
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"": err.Error()}
	}

	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		field := baseField(fe.Field())
		if _, seen := out[field]; seen {
			continue
		}
		out[field] = v.message(field, fe)
	}
	return out
}

func (v *Validator) message(field string, fe validator.FieldError) string {
	if msg, ok := v.byField[field+"."+fe.Tag()]; ok {
		return msg
	}
	if fn, ok := v.byTag[fe.Tag()]; ok {
		return fn(fe)
	}
	return fmt.Sprintf("Giá trị không hợp lệ (%s)", fe.Tag())
}

// baseField strips a dive index: "timesOfDay[1]" -> "timesOfDay".
func baseField(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}

func defaultMessages() map[string]MessageFunc {
	return map[string]MessageFunc{
		"required": func(validator.FieldError) string {
			return "Trường này là bắt buộc"
		},
		"email": func(validator.FieldError) string {
			return "Email không hợp lệ"
		},
		"gt": func(fe validator.FieldError) string {
			return fmt.Sprintf("Giá trị phải lớn hơn %s", fe.Param())
		},
		"gte": func(fe validator.FieldError) string {
			return fmt.Sprintf("Giá trị phải lớn hơn hoặc bằng %s", fe.Param())
		},
		"min": func(fe validator.FieldError) string {
			if fe.Kind() == reflect.Slice {
				return fmt.Sprintf("Vui lòng chọn ít nhất %s mục", fe.Param())
			}
			return fmt.Sprintf("Giá trị tối thiểu là %s", fe.Param())
		},
		"max": func(fe validator.FieldError) string {
			if fe.Kind() == reflect.Slice {
				return fmt.Sprintf("Chỉ được chọn tối đa %s mục", fe.Param())
			}
			return fmt.Sprintf("Giá trị tối đa là %s", fe.Param())
		},
		"oneof": func(fe validator.FieldError) string {
			return fmt.Sprintf("Giá trị phải là một trong: %s", fe.Param())
		},
	}
}
