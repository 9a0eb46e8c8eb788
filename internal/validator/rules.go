package validator

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const maxEntityIDLength = 64

// registerCustomRules регистрирует кастомные теги. Ошибка регистрации - ошибка сборки
// приложения, поэтому паникуем.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic("failed to register custom validation tag '" + tag + "': " + err.Error())
		}
	}

	// 'entity-id': ID пользователя или переписки. Пустое значение пропускается,
	// его отсекают required или доменные проверки.
	mustRegister("entity-id", validateEntityID)
}

func validateEntityID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" {
		return true
	}
	if utf8.RuneCountInString(id) > maxEntityIDLength {
		return false
	}
	return !strings.ContainsFunc(id, unicode.IsSpace)
}
