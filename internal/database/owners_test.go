package database

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_EnsureOwner(t *testing.T) {
	ctx := context.Background()
	insert := "(?s)" + regexp.QuoteMeta("INSERT INTO owners") + ".*" + regexp.QuoteMeta("ON CONFLICT DO NOTHING")
	exists := regexp.QuoteMeta("SELECT EXISTS(SELECT 1 FROM owners WHERE id = $1)")

	tests := []struct {
		name    string
		email   string
		setup   func(mock sqlmock.Sqlmock)
		wantErr bool
	}{
		{
			name:  "creates a missing owner with its email",
			email: "new@example.com",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(insert).
					WithArgs("uid-1", "new@example.com", "owner", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:  "leaves an existing owner alone",
			email: "new@example.com",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(insert).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(exists).WithArgs("uid-1").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
		},
		{
			name:  "falls back to the id when the email is taken",
			email: "taken@example.com",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(insert).
					WithArgs("uid-1", "taken@example.com", "owner", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectQuery(exists).WithArgs("uid-1").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
				mock.ExpectExec(insert).
					WithArgs("uid-1", "uid-1", "owner", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:  "uses the id when there is no email",
			email: "  ",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(insert).
					WithArgs("uid-1", "uid-1", "owner", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name:  "surfaces insert failures",
			email: "new@example.com",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(insert).WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock := newMockStore(t)
			tt.setup(mock)

			err := store.EnsureOwner(ctx, "uid-1", tt.email)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
