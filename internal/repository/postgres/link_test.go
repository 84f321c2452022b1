package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestLinkRepo_Link(t *testing.T) {
	tests := []struct {
		name          string
		affected      int64
		mockError     error
		expected      bool
		expectedError bool
	}{
		{
			name:     "new link",
			affected: 1,
			expected: true,
		},
		{
			name:     "duplicate link",
			affected: 0,
			expected: false,
		},
		{
			name:      "unknown bot",
			mockError: &pq.Error{Code: "23503"},
			expected:  false,
		},
		{
			name:          "database error",
			mockError:     fmt.Errorf("db error"),
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			expect := mock.ExpectExec("INSERT INTO users_bots").WithArgs(int64(123), testBotID)
			if tt.mockError != nil {
				expect.WillReturnError(tt.mockError)
			} else {
				expect.WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			ok, err := NewLinkRepo(db).Link(context.Background(), 123, testBotID)

			if tt.expectedError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestLinkRepo_Unlink(t *testing.T) {
	tests := []struct {
		name     string
		affected int64
		expected bool
	}{
		{name: "removed", affected: 1, expected: true},
		{name: "no such link", affected: 0, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			assert.NoError(t, err)
			defer db.Close()

			mock.ExpectExec("DELETE FROM users_bots WHERE user_id = \\$1 AND bot_id = \\$2").
				WithArgs(int64(123), testBotID).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			ok, err := NewLinkRepo(db).Unlink(context.Background(), 123, testBotID)

			assert.NoError(t, err)
			assert.Equal(t, tt.expected, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
