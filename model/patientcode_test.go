package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCodeAlphabet(t *testing.T) {
	assert.Equal(t, "M", codeAlphabet("malee jaidee"))
	assert.Equal(t, "S", codeAlphabet("  Somchai"))
	assert.Equal(t, "P", codeAlphabet("มาลี"))
	assert.Equal(t, "P", codeAlphabet("1abc"))
	assert.Equal(t, "P", codeAlphabet(""))
}

func TestNextHospitalNumberIncrementsPerAlphabet(t *testing.T) {
	db := setupTestDB(t, "patientcode", &PatientCode{})

	first, err := NextHospitalNumber(db, "Malee")
	require.NoError(t, err)
	assert.Equal(t, "M0001", first)

	second, err := NextHospitalNumber(db, "Manop")
	require.NoError(t, err)
	assert.Equal(t, "M0002", second)

	other, err := NextHospitalNumber(db, "Somchai")
	require.NoError(t, err)
	assert.Equal(t, "S0001", other)

	var counter PatientCode
	require.NoError(t, db.Where("alphabet = ?", "M").First(&counter).Error)
	assert.Equal(t, 2, counter.Number)
	assert.Equal(t, "M0002", counter.Code)
}

func TestNextHospitalNumberInsideTransaction(t *testing.T) {
	db := setupTestDB(t, "patientcode_tx", &PatientCode{})

	err := db.Transaction(func(tx *gorm.DB) error {
		code, err := NextHospitalNumber(tx, "Anan")
		require.NoError(t, err)
		assert.Equal(t, "A0001", code)
		return errRollback
	})
	assert.ErrorIs(t, err, errRollback)

	code, err := NextHospitalNumber(db, "Anan")
	require.NoError(t, err)
	assert.Equal(t, "A0001", code)
}

var errRollback = errors.New("rollback")
