package mysql

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepository(t *testing.T) {
	tests := []struct {
		name    string
		dsn     string
		title   string
		wantErr bool
	}{
		{name: "empty", dsn: "", wantErr: true},
		{name: "malformed", dsn: "user:pw@tcp(db:3306", wantErr: true},
		{name: "valid", dsn: "user:pw@tcp(db:3306)/ledger?parseTime=true", title: "ledger"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, err := NewRepository(tt.dsn)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.title, repo.Title())
		})
	}
}

func TestIsDuplicateEntry(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	assert.True(t, isDuplicateEntry(dup))
	assert.True(t, isDuplicateEntry(fmt.Errorf("exec: %w", dup)))
	assert.False(t, isDuplicateEntry(&mysql.MySQLError{Number: 1045}))
	assert.False(t, isDuplicateEntry(errors.New("Duplicate entry")))
}

func TestRepository_RequiresOpen(t *testing.T) {
	repo, err := NewRepository("user:pw@tcp(127.0.0.1:1)/ledger")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = repo.ReadKeyColumn(ctx)
	assert.Error(t, err)
	assert.Error(t, repo.AppendRow(ctx, make([]string, len(rowColumns))))
	assert.Error(t, repo.AppendRow(ctx, []string{"short"}))
	assert.NoError(t, repo.Close())
}
