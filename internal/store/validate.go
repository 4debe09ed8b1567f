package store

import (
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/user/omovies/internal/model"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

type movieIDInput struct {
	ID string `validate:"required,number"`
}

type filterInput struct {
	Filter model.MoviesFilter `validate:"required,oneof=nowplaying popular upcoming toprated"`
}

type reviewInput struct {
	Content string `validate:"required"`
	ID      int    `validate:"gt=0"`
}

type ratingInput struct {
	Value int `validate:"oneof=1 2 3 4 5"`
	ID    int `validate:"gt=0"`
}

// check 执行结构体校验，reasons 按字段名给出失败原因
func check(action string, input interface{}, reasons map[string]string) *ActionError {
	err := getValidator().Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		if reason, ok := reasons[fieldErrs[0].Field()]; ok {
			return invalid(action, reason, err)
		}
	}
	return invalid(action, "Paramètres invalides", err)
}

func checkMovieID(action, id string) *ActionError {
	return check(action, movieIDInput{ID: strings.TrimSpace(id)}, map[string]string{
		"ID": "Identifiant de film invalide",
	})
}

func checkFilter(action string, filter model.MoviesFilter) *ActionError {
	return check(action, filterInput{Filter: filter}, map[string]string{
		"Filter": "Filtre manquant ou invalide",
	})
}

func checkReview(action, content string, id int, idReason string) *ActionError {
	return check(action, reviewInput{Content: strings.TrimSpace(content), ID: id}, map[string]string{
		"Content": "La critique ne peut pas être vide",
		"ID":      idReason,
	})
}

func checkRating(action string, value, id int, idReason string) *ActionError {
	return check(action, ratingInput{Value: value, ID: id}, map[string]string{
		"Value": "La note doit être un entier entre 1 et 5",
		"ID":    idReason,
	})
}
