package model

import (
	"fmt"

	"gorm.io/gorm"
)

// Role IDs in seed order.
const (
	RoleAdmin   uint32 = 1
	RoleDoctor  uint32 = 2
	RolePatient uint32 = 3
)

type Role struct {
	gorm.Model
	ID   uint32 `gorm:"primary_key;auto_increment" json:"id"`
	Name string `gorm:"type:varchar(100);not null" json:"name"`
}

// SeedRoles creates the fixed roles with their well-known IDs when missing.
func SeedRoles(db *gorm.DB) error {
	roles := []Role{
		{ID: RoleAdmin, Name: "Admin"},
		{ID: RoleDoctor, Name: "Doctor"},
		{ID: RolePatient, Name: "Patient"},
	}

	for _, role := range roles {
		var existingRole Role
		err := db.Where("name = ?", role.Name).First(&existingRole).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("failed to seed role %s: %w", role.Name, err)
		}
	}
	return nil
}
