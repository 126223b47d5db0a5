package validation

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"hr-evaluator.kz/internal/models"
)

func validForm() *models.EmployeeForm {
	return &models.EmployeeForm{
		Name:           "Алия",
		Department:     "Sales",
		Attendance:     9,
		TaskEfficiency: 8,
		Teamwork:       7.5,
		Initiative:     6,
		ProjectQuality: 10,
	}
}

func TestValidateStruct_EmployeeForm(t *testing.T) {
	assert.Nil(t, ValidateStruct(validForm()))

	form := validForm()
	form.Name = ""
	form.Teamwork = 0.5
	form.ProjectQuality = 11
	errs := ValidateStruct(form)

	assert.Equal(t, "Это поле обязательно для заполнения.", errs.Get("name"))
	assert.Contains(t, errs.Get("teamwork"), "от 1 до 10")
	assert.Contains(t, errs.Get("project_quality"), "от 1 до 10")
	assert.Empty(t, errs.Get("attendance"))
}

func TestValidateStruct_EvaluationForm(t *testing.T) {
	errs := ValidateStruct(&models.EvaluationForm{TaskEfficiency: 5, Teamwork: 5, ProjectQuality: 5})
	assert.NotEmpty(t, errs.Get("employee_id"))

	assert.Nil(t, ValidateStruct(&models.EvaluationForm{EmployeeID: 3, TaskEfficiency: 1, Teamwork: 10, ProjectQuality: 5}))
}

func TestParseMetric(t *testing.T) {
	form := url.Values{
		"a": {"7.5"},
		"b": {" 8,25 "},
		"c": {"abc"},
		"d": {""},
	}
	errs := url.Values{}

	assert.Equal(t, 7.5, ParseMetric(form, "a", errs))
	assert.Equal(t, 8.25, ParseMetric(form, "b", errs))
	assert.Equal(t, 0.0, ParseMetric(form, "c", errs))
	assert.Equal(t, 0.0, ParseMetric(form, "d", errs))

	assert.Equal(t, "Введите число.", errs.Get("c"))
	assert.Equal(t, "Это поле обязательно для заполнения.", errs.Get("d"))
	assert.Empty(t, errs.Get("a"))
}

func TestMerge_KeepsFirstError(t *testing.T) {
	dst := url.Values{"teamwork": {"Введите число."}}
	src := url.Values{"teamwork": {"Значение должно быть от 1 до 10."}, "name": {"required"}}

	merged := Merge(dst, src)
	assert.Equal(t, []string{"Введите число."}, merged["teamwork"])
	assert.Equal(t, "required", merged.Get("name"))
}
