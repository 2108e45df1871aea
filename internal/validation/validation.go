// Package validation содержит функции валидации входных данных.
package validation

import "strings"

// MinPasswordLength — минимально допустимая длина пароля при регистрации.
const MinPasswordLength = 6

// IsValidEmail проверяет адрес электронной почты на минимальную корректность.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}

	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return false
	}

	return !strings.ContainsAny(email, " \t\r\n")
}

// IsValidPassword проверяет, что пароль удовлетворяет минимальной длине.
func IsValidPassword(password string) bool {
	return len(password) >= MinPasswordLength
}

// productSortColumns сопоставляет допустимые поля сортировки каталога колонкам БД.
var productSortColumns = map[string]string{
	"createdAt":     "created_at",
	"price":         "price",
	"name":          "name",
	"downloadCount": "download_count",
}

// ProductSortColumn возвращает имя колонки для поля сортировки каталога.
// Неизвестные значения сводятся к сортировке по дате создания.
func ProductSortColumn(field string) string {
	if col, ok := productSortColumns[field]; ok {
		return col
	}
	return "created_at"
}

// IsValidProductSort сообщает, допустимо ли поле сортировки каталога.
func IsValidProductSort(field string) bool {
	_, ok := productSortColumns[field]
	return ok
}
