package repository

import (
	"errors"
	"fmt"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTranslateCreateError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "username index",
			err:  &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'ab1' for key 'users.uk_users_username'"},
			want: ErrDuplicateUsername,
		},
		{
			name: "email index wrapped",
			err:  fmt.Errorf("exec: %w", &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.com' for key 'users.uk_users_email'"}),
			want: ErrDuplicateEmail,
		},
		{
			name: "entry value naming the other index",
			err:  &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'uk_users_username@x.io' for key 'users.uk_users_email'"},
			want: ErrDuplicateEmail,
		},
		{
			name: "key without table prefix",
			err:  &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'ab1' for key 'uk_users_username'"},
			want: ErrDuplicateUsername,
		},
		{
			name: "primary key",
			err:  &mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'users.PRIMARY'"},
			want: ErrDuplicate,
		},
		{
			name: "gorm translated",
			err:  gorm.ErrDuplicatedKey,
			want: ErrDuplicate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translateCreateError(tt.err), tt.want)
		})
	}
}

func TestTranslateCreateErrorKeepsOtherErrors(t *testing.T) {
	cause := &mysqldriver.MySQLError{Number: 1045, Message: "Access denied"}
	err := translateCreateError(cause)

	assert.ErrorIs(t, err, cause)
	assert.False(t, errors.Is(err, ErrDuplicate))
	assert.Contains(t, err.Error(), "create user failed")
}

func TestDuplicateKeyName(t *testing.T) {
	assert.Equal(t, "uk_users_email", duplicateKeyName("Duplicate entry 'a for key 'b' for key 'users.uk_users_email'"))
	assert.Equal(t, "PRIMARY", duplicateKeyName("Duplicate entry 'x' for key 'PRIMARY'"))
	assert.Empty(t, duplicateKeyName("Duplicate entry 'x'"))
}

func TestIsDuplicateKey(t *testing.T) {
	assert.True(t, isDuplicateKey(&mysqldriver.MySQLError{Number: 1062}))
	assert.True(t, isDuplicateKey(gorm.ErrDuplicatedKey))
	assert.False(t, isDuplicateKey(&mysqldriver.MySQLError{Number: 1213}))
	assert.False(t, isDuplicateKey(errors.New("boom")))
}
