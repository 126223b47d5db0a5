// internal/validation/validation.go
package validation

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"hr-evaluator.kz/internal/models"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("metric", validateMetric)

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func ValidateStruct(data interface{}) url.Values {
	err := validate.Struct(data)
	if err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

func formatValidationErrors(err error) url.Values {
	errorsMap := url.Values{}
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldErr := range validationErrs {
			errorsMap.Add(fieldErr.Field(), getErrorMessage(fieldErr))
		}
	} else {
		errorsMap.Add("general", "Ошибка валидации: "+err.Error())
	}
	return errorsMap
}

func getErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "Это поле обязательно для заполнения."
	case "max":
		return fmt.Sprintf("Максимальная длина этого поля: %s символов.", err.Param())
	case "gt":
		return "Выберите сотрудника."
	case "metric":
		return fmt.Sprintf("Значение должно быть от %g до %g.", models.MetricMin, models.MetricMax)
	default:
		return fmt.Sprintf("Некорректное значение для поля %s (тег: %s).", err.Field(), err.Tag())
	}
}

func validateMetric(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	return v >= models.MetricMin && v <= models.MetricMax
}

// ParseMetric разбирает числовое поле формы. Ошибка разбора добавляется в errs под именем поля.
func ParseMetric(form url.Values, field string, errs url.Values) float64 {
	raw := strings.TrimSpace(form.Get(field))
	if raw == "" {
		errs.Add(field, "Это поле обязательно для заполнения.")
		return 0
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		errs.Add(field, "Введите число.")
		return 0
	}
	return v
}

// Merge добавляет ошибки src в dst, пропуская поля, для которых ошибка уже есть.
func Merge(dst, src url.Values) url.Values {
	if dst == nil {
		dst = url.Values{}
	}
	for field, msgs := range src {
		if dst.Get(field) != "" {
			continue
		}
		for _, m := range msgs {
			dst.Add(field, m)
		}
	}
	return dst
}
