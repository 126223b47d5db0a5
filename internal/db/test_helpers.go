// internal/db/test_helpers.go
package db

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// EmployeeColumns - колонки, которые возвращают SELECT-запросы по сотрудникам. Для sqlmock.NewRows.
var EmployeeColumns = []string{
	"id", "name", "department", "attendance", "task_efficiency", "teamwork",
	"initiative", "project_quality", "predicted_score", "created_at", "updated_at",
}

// UseMockDB подменяет глобальный DB на sqlmock и возвращает прежний после теста.
// Проверяет, что все ожидания выполнены.
func UseMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	prev := DB
	DB = mockDB
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("Unmet sqlmock expectations: %v", err)
		}
		DB = prev
		_ = mockDB.Close()
	})
	return mock
}
