package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"prepify/internal/slug"
)

// fieldLabels maps form field names to the labels used in messages.
var fieldLabels = map[string]string{
	"name":             "Name",
	"title":            "Title",
	"slug":             "Slug",
	"parent_id":        "Parent category",
	"category_id":      "Category",
	"description":      "Description",
	"meta_title":       "Meta title",
	"meta_description": "Meta description",
	"keywords":         "Keywords",
	"duration":         "Duration",
	"year":             "Year",
	"session":          "Session",
	"question_text":    "Question text",
	"type":             "Type",
	"options":          "Options",
	"correct_answer":   "Correct answer",
	"explanation":      "Explanation",
	"position":         "Position",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slug.Valid(fl.Field().String())
	})
	v.RegisterStructValidation(questionRules, QuestionForm{})
	return v
}

// checkForm validates a form struct and returns messages keyed by form
// field name. A nil map means the form is valid.
func checkForm(form any) map[string]string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_form": "The form could not be checked."}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; !seen {
			out[fe.Field()] = fieldMessage(fe)
		}
	}
	return out
}

// fieldMessage turns one failed rule into a sentence for the form.
func fieldMessage(fe validator.FieldError) string {
	label, ok := fieldLabels[fe.Field()]
	if !ok {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s is too long (max %s characters).", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s.", label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s.", label, fe.Param())
	case "uuid":
		return "Select a valid " + strings.ToLower(label) + "."
	case "oneof":
		return "Select a valid " + strings.ToLower(label) + "."
	case "slug":
		return label + " may only contain lowercase letters, digits and hyphens."
	case "min_options":
		return "Multiple choice questions need at least two options."
	case "answer_in_options":
		return "Every correct answer must be one of the options."
	default:
		return label + " is invalid."
	}
}
