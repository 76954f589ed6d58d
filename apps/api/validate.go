package main

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/alumnihub/backend/core"
	"github.com/alumnihub/backend/core/alumni"
)

func newValidator(logger core.Logger) (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	alumni.InitValidators(validate, translator)
	alumni.LoadCommonPasswords(logger)
	return validate, translator
}
