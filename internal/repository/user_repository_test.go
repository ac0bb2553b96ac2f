package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupMockDB opens a GORM connection over a sqlmock driver, for tests
// asserting the exact SQL the repository issues.
func setupMockDB(t *testing.T) (UserRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB.Close()
	})

	return NewUserRepository(db), mock
}

func TestGormUserRepository_FindByEmail(t *testing.T) {
	repo, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "email", "display_name"}).
		AddRow("u1", "a@example.com", "Alice")

	mock.ExpectQuery("SELECT (.+) FROM `users` WHERE email = (.+)").
		WithArgs("a@example.com", 1).
		WillReturnRows(rows)

	user, err := repo.FindByEmail("a@example.com")
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)
	require.Equal(t, "Alice", user.DisplayName)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_FindByEmailNotFound(t *testing.T) {
	repo, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT (.+) FROM `users` WHERE email = (.+)").
		WithArgs("missing@example.com", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}))

	_, err := repo.FindByEmail("missing@example.com")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUserRepository_FindByID(t *testing.T) {
	repo, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "email"}).
		AddRow("u1", "a@example.com")

	mock.ExpectQuery("SELECT (.+) FROM `users` WHERE id = (.+)").
		WithArgs("u1", 1).
		WillReturnRows(rows)

	user, err := repo.FindByID("u1")
	require.NoError(t, err)
	require.Equal(t, "a@example.com", user.Email)

	require.NoError(t, mock.ExpectationsWereMet())
}
