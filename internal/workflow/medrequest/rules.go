package medrequest

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	playground "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/schoolmed/internal/model"
	"github.com/jwalitptl/schoolmed/pkg/validator"
)

type completenessKey struct{}

// completenessOnly marks a validation run that checks the field tags only,
// skipping the cross-field medication rules.
func completenessOnly(ctx context.Context) context.Context {
	return context.WithValue(ctx, completenessKey{}, true)
}

// NewValidator returns a validator with the medication rules and messages registered.
func NewValidator() (*validator.Validator, error) {
	v := validator.New()
	if err := RegisterRules(v); err != nil {
		return nil, err
	}
	return v, nil
}

// RegisterRules installs the custom tags, the DateTime type and the
// cross-field medication rule on v.
func RegisterRules(v *validator.Validator) error {
	engine := v.Engine()

	engine.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		dt, ok := field.Interface().(model.DateTime)
		if !ok || dt.IsZero() {
			return nil
		}
		return dt.Time
	}, model.DateTime{})

	if err := engine.RegisterValidation("period", func(fl playground.FieldLevel) bool {
		p := model.Period(fl.Field().String())
		return p.Valid() && !p.IsEmergency()
	}); err != nil {
		return fmt.Errorf("register period rule: %w", err)
	}

	engine.RegisterStructValidationCtx(medicationRule, model.Medication{})

	v.RegisterFieldMessage("name", "required", "Vui lòng nhập tên thuốc")
	v.RegisterFieldMessage("dosage", "gt", "Liều dùng phải lớn hơn 0")
	v.RegisterFieldMessage("frequency", "gt", "Số lần dùng mỗi ngày phải lớn hơn 0")
	v.RegisterFieldMessage("expiryDate", "required", "Vui lòng chọn hạn sử dụng")
	v.RegisterFieldMessage("quantitySent", "gt", "Số lượng thuốc gửi phải lớn hơn 0")
	v.RegisterFieldMessage("instructions", "required", "Vui lòng nhập hướng dẫn sử dụng")
	v.RegisterFieldMessage("timesOfDay", "min", "Vui lòng chọn ít nhất một thời điểm uống thuốc")
	v.RegisterFieldMessage("timesOfDay", "period", "Thời điểm uống thuốc không hợp lệ")
	v.RegisterMessage("dailydose", func(fe playground.FieldError) string {
		return fmt.Sprintf("Số lượng thuốc gửi phải lớn hơn tổng liều dùng mỗi ngày (liều × số lần = %s)", fe.Param())
	})
	v.RegisterMessage("maxtimes", func(fe playground.FieldError) string {
		return maxTimesMessage(fe.Param())
	})
	return nil
}

// medicationRule checks quantitySent >= dosage x frequency and that no more
// times of day are selected than the daily frequency.
func medicationRule(ctx context.Context, sl playground.StructLevel) {
	if only, _ := ctx.Value(completenessKey{}).(bool); only {
		return
	}
	m, ok := sl.Current().Interface().(model.Medication)
	if !ok || m.Dosage <= 0 || m.Frequency <= 0 {
		return
	}

	if m.QuantitySent > 0 && float64(m.QuantitySent) < m.DailyDose() {
		sl.ReportError(m.QuantitySent, "quantitySent", "QuantitySent", "dailydose",
			strconv.FormatFloat(m.DailyDose(), 'f', -1, 64))
	}
	if len(m.TimesOfDay) > m.Frequency {
		sl.ReportError(m.TimesOfDay, "timesOfDay", "TimesOfDay", "maxtimes", strconv.Itoa(m.Frequency))
	}
}

func maxTimesMessage(limit string) string {
	return fmt.Sprintf("Chỉ được chọn tối đa %s thời điểm uống thuốc mỗi ngày", limit)
}
