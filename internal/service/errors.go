package service

import "errors"

var (
	// ErrInvalidInput — пустые или слишком длинные поля, нарушение политики пароля.
	ErrInvalidInput = errors.New("invalid input")
	// ErrAuthenticationFailure — конверт не открылся: подмена, повреждение или чужой ключ.
	ErrAuthenticationFailure = errors.New("authentication failure")
	// ErrEncryptionUnavailable — ключ хранилища пользователя отсутствует или недоступен.
	ErrEncryptionUnavailable = errors.New("encryption key unavailable")
	// ErrNotFound — нет такой записи или она принадлежит другому пользователю.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized — неверный логин/пароль или ответ на контрольный вопрос.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLoginTaken — логин уже занят.
	ErrLoginTaken = errors.New("login already taken")
	// ErrForbidden — действие доступно только администратору группы.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict — имя группы занято или действие уже выполнено.
	ErrConflict = errors.New("conflict")
	// ErrQuestionNotFound — контрольного вопроса нет в справочнике.
	ErrQuestionNotFound = errors.New("security question not found")
)
