package models

import (
	"gorm.io/gorm"
)

func MigrateTable(db *gorm.DB) error {
	return db.AutoMigrate(
		&Group{}, &User{},
		&Transaction{},
		&Goal{}, &Budget{},
		&Task{}, &Loan{},
		&ShoppingItem{}, &ShoppingTrip{},
		&QuizBundle{}, &UserAssignment{},
		&Session{},
	)
}
