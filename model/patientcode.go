package model

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"
)

// ErrPatientCodeContention means another signup took the same counter
// value first; the caller's transaction should be retried.
var ErrPatientCodeContention = errors.New("patient code counter changed concurrently")

// defaultCodeAlphabet prefixes codes for names that do not start with a
// Latin letter.
const defaultCodeAlphabet = "P"

// PatientCode is the running counter behind generated hospital numbers,
// one row per initial letter. Code is the last number issued.
type PatientCode struct {
	gorm.Model
	Alphabet string `json:"alphabet" gorm:"size:1;uniqueIndex"`
	Number   int    `json:"number"`
	Code     string `json:"code" gorm:"size:191"`
}

func codeAlphabet(name string) string {
	for _, r := range strings.TrimSpace(name) {
		if r < unicode.MaxASCII && unicode.IsLetter(r) {
			return string(unicode.ToUpper(r))
		}
		break
	}
	return defaultCodeAlphabet
}

// NextHospitalNumber issues the next code for the initial of name, such as
// "M0001". Run it inside the signup transaction.
func NextHospitalNumber(tx *gorm.DB, name string) (string, error) {
	alphabet := codeAlphabet(name)
	counter := PatientCode{Alphabet: alphabet}
	if err := tx.Where(PatientCode{Alphabet: alphabet}).FirstOrCreate(&counter).Error; err != nil {
		return "", err
	}

	number := counter.Number + 1
	code := fmt.Sprintf("%s%04d", alphabet, number)
	res := tx.Model(&PatientCode{}).
		Where("id = ? AND number = ?", counter.ID, counter.Number).
		Updates(map[string]interface{}{"number": number, "code": code})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrPatientCodeContention
	}
	return code, nil
}
